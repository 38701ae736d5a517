package main

import (
	"os"
	"strings"
	"testing"
)

func TestRenderTableKeepsHeaderCasing(t *testing.T) {
	out := renderTable(
		[]string{"Status", "Count"},
		[][]string{{"Pending", "3"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "Status") {
		t.Fatalf("header missing from table:\n%s", out)
	}
	if strings.Contains(out, "STATUS") {
		t.Fatalf("header must not be upper-cased:\n%s", out)
	}
	if !strings.Contains(out, "Pending") || !strings.Contains(out, "3") {
		t.Fatalf("row content missing:\n%s", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Status", "Error"},
		[][]string{{"abc123"}},
		nil,
	)
	if strings.Contains(out, "<nil>") {
		t.Fatalf("missing cells must render empty, not nil:\n%s", out)
	}
	if !strings.Contains(out, "abc123") {
		t.Fatalf("row content missing:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Connectivity", statusWarn, "Offline (entries will queue)", false)
	if !strings.Contains(plain, "Connectivity") || !strings.Contains(plain, "warn") {
		t.Fatalf("unexpected status line %q", plain)
	}
	if !strings.Contains(plain, "Offline (entries will queue)") {
		t.Fatalf("detail missing from %q", plain)
	}
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("uncolored line must carry no escapes: %q", plain)
	}

	colored := renderStatusLine("Satchel", statusOK, "Running", true)
	if !strings.Contains(colored, ansiGreen) || !strings.Contains(colored, ansiReset) {
		t.Fatalf("expected colored marker in %q", colored)
	}
	if !strings.HasPrefix(colored, statusIndent+"Satchel") {
		t.Fatalf("detail text must stay outside the color span: %q", colored)
	}
}

func TestRenderSectionHeaderUnderlines(t *testing.T) {
	lines := renderSectionHeader(" Queue Status ", false)
	if len(lines) != 2 {
		t.Fatalf("expected title and rule, got %v", lines)
	}
	if lines[0] != "Queue Status" {
		t.Fatalf("title not trimmed: %q", lines[0])
	}
	if lines[1] != strings.Repeat("=", len("Queue Status")) {
		t.Fatalf("rule does not match title width: %q", lines[1])
	}
}

func TestShouldColorizeHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if shouldColorize(os.Stdout) {
		t.Fatal("NO_COLOR must disable colorized output")
	}
}
