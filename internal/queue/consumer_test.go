package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHandleMessageAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "seat-events.log")
	body := []byte(`{"type":"seat.booked","seat_id":7,"w3_id":"alice","name":"Alice","date":"2026-10-14","time_slot":"09:00-12:00","occurred_at":"2026-10-14T08:00:00Z"}`)

	if err := handleMessage(body, path); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := handleMessage([]byte(`{"type":"seat.released","seat_id":7,"w3_id":"alice","occurred_at":"2026-10-14T09:00:00Z"}`), path); err != nil {
		t.Fatalf("handle: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	want := `[2026-10-14T08:00:00Z] seat.booked | seat_id=7 | w3_id=alice | name="Alice" | date=2026-10-14 | time_slot=09:00-12:00`
	if lines[0] != want {
		t.Fatalf("unexpected line:\n got %s\nwant %s", lines[0], want)
	}
	if !strings.HasPrefix(lines[1], "[2026-10-14T09:00:00Z] seat.released | seat_id=7") {
		t.Fatalf("unexpected line: %s", lines[1])
	}
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seat-events.log")
	for _, body := range []string{`not json`, `{"type":"seat.booked"}`, `{"seat_id":3}`} {
		if err := handleMessage([]byte(body), path); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("bad payloads must not create the log file")
	}
}

func TestFormatEventOmitsEmptyDetails(t *testing.T) {
	got := formatEvent(SeatEvent{Type: SeatReleased, SeatID: 1, W3ID: "bob", OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)})
	want := "[2026-01-02T03:04:05Z] seat.released | seat_id=1 | w3_id=bob\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
