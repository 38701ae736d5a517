package main

import (
	"testing"

	"satchel/internal/ipc"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"pending": "Pending",
		"sending": "Sending",
		"error":   "Error",
		"":        "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestShortEntryID(t *testing.T) {
	if got := shortEntryID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("expected truncated id, got %q", got)
	}
	if got := shortEntryID("abc"); got != "abc" {
		t.Fatalf("short ids must pass through, got %q", got)
	}
}

func TestFormatDisplayTime(t *testing.T) {
	if got := formatDisplayTime("2026-05-01T12:30:00.000Z"); got != "2026-05-01 12:30" {
		t.Fatalf("unexpected formatted time %q", got)
	}
	if got := formatDisplayTime(""); got != "" {
		t.Fatalf("empty input must stay empty, got %q", got)
	}
	if got := formatDisplayTime("not-a-time"); got != "not-a-time" {
		t.Fatalf("unparseable input must pass through, got %q", got)
	}
}

func TestBuildQueueStatusRowsSorted(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int64{
		"pending": 3,
		"error":   1,
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Error" || rows[1][0] != "Pending" {
		t.Fatalf("rows must be sorted by status: %v", rows)
	}
	if rows[0][1] != "1" || rows[1][1] != "3" {
		t.Fatalf("counts wrong: %v", rows)
	}
}

func TestBuildEntryListRows(t *testing.T) {
	rows := buildEntryListRows([]ipc.QueueEntry{
		{
			ID:          "0123456789abcdef",
			Status:      "pending",
			RetryCount:  2,
			Attachments: 1,
			CreatedAt:   "2026-05-01T12:30:00.000Z",
		},
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row[0] != "01234567" {
		t.Fatalf("id column wrong: %q", row[0])
	}
	if row[1] != "Pending" {
		t.Fatalf("status column wrong: %q", row[1])
	}
	if row[2] != "2" || row[3] != "1" {
		t.Fatalf("numeric columns wrong: %v", row)
	}
	if row[4] != "2026-05-01 12:30" {
		t.Fatalf("created column wrong: %q", row[4])
	}
}
