package logbuffer

import (
	"testing"
	"time"
)

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	b := New(3)
	for i, msg := range []string{"one", "two", "three", "four"} {
		b.Add(LogEntry{Timestamp: time.Now().Add(time.Duration(i) * time.Second), Message: msg})
	}

	all := b.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Message != "two" || all[2].Message != "four" {
		t.Fatalf("unexpected order: %q .. %q", all[0].Message, all[2].Message)
	}
}

func TestQueryNewestFirstWithLimit(t *testing.T) {
	b := New(10)
	b.Add(LogEntry{Message: "starting playback", Level: "info"})
	b.Add(LogEntry{Message: "health poll failed", Level: "warn"})
	b.Add(LogEntry{Message: "switched source", Level: "info"})

	got := b.Query(QueryParams{Level: "info", Limit: 1})
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Message != "switched source" {
		t.Fatalf("expected newest info entry first, got %q", got[0].Message)
	}
}

func TestWriterParsesZerologJSON(t *testing.T) {
	b := New(10)
	w := NewWriter(b, nil)

	line := `{"level":"warn","component":"player","message":"backend start failed","source":"news-channel","time":1700000000}` + "\n"
	if _, err := w.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}

	all := b.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(all))
	}
	entry := all[0]
	if entry.Level != "warn" || entry.Component != "player" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Fields["source"] != "news-channel" {
		t.Fatalf("expected source field to be preserved, got %v", entry.Fields)
	}
}
