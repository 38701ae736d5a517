package logs_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"satchel/internal/logs"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "satchel.log")
	contents := strings.Join(lines, "\n")
	if len(lines) > 0 {
		contents += "\n"
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("missing file must yield nothing, got %#v", result)
	}
}

func TestTailNegativeOffsetReturnsLastLines(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("line-%d", i))
	}
	path := writeLog(t, lines...)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 3})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(result.Lines))
	}
	if result.Lines[0] != "line-7" || result.Lines[2] != "line-9" {
		t.Fatalf("wrong tail window: %v", result.Lines)
	}
	if result.Offset == 0 {
		t.Fatal("expected end-of-file offset")
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := writeLog(t, "first", "second")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := file.WriteString("third\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	file.Close()

	next, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: initial.Offset, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(next.Lines) != 1 || next.Lines[0] != "third" {
		t.Fatalf("expected only the appended line, got %v", next.Lines)
	}
	if next.Offset <= initial.Offset {
		t.Fatal("offset must advance past appended data")
	}
}

func TestTailOffsetBeyondEOFClamps(t *testing.T) {
	path := writeLog(t, "only")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 1 << 20, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines past EOF, got %v", result.Lines)
	}
}

func TestTailFollowWaitsForNewLines(t *testing.T) {
	path := writeLog(t, "existing")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	go func() {
		time.Sleep(300 * time.Millisecond)
		file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer file.Close()
		file.WriteString("fresh\n")
	}()

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: initial.Offset,
		Limit:  10,
		Follow: true,
		Wait:   3 * time.Second,
	})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "fresh" {
		t.Fatalf("expected the appended line, got %v", result.Lines)
	}
}

func TestTailFollowTimesOutEmpty(t *testing.T) {
	path := writeLog(t, "stale")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	start := time.Now()
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: initial.Offset,
		Limit:  10,
		Follow: true,
		Wait:   400 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %v", result.Lines)
	}
	if time.Since(start) < 300*time.Millisecond {
		t.Fatal("follow must honor the wait window")
	}
}
