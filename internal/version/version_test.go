package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/events"
)

func withReleaseServer(t *testing.T, body string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	orig := releasesURL
	releasesURL = srv.URL
	t.Cleanup(func() { releasesURL = orig })
}

func TestCheckPublishesUpdateEvent(t *testing.T) {
	withReleaseServer(t, `{"tag_name":"v9.9.9","html_url":"https://example.com/releases/v9.9.9"}`)

	bus := events.NewBus()
	sub := bus.Subscribe(events.EventUpdateAvailable)
	w := NewWatcher(bus, zerolog.Nop())

	w.check(context.Background())

	if got := w.Latest(); got != "9.9.9" {
		t.Errorf("Latest() = %q, want 9.9.9", got)
	}
	if !w.Behind() {
		t.Error("Behind() = false, running build predates 9.9.9")
	}
	select {
	case payload := <-sub:
		if payload["latest"] != "9.9.9" {
			t.Errorf("payload latest = %v", payload["latest"])
		}
		if payload["running"] != Version {
			t.Errorf("payload running = %v, want %s", payload["running"], Version)
		}
	case <-time.After(time.Second):
		t.Fatal("no update event published")
	}

	// The same release must not be announced again on the next check.
	w.check(context.Background())
	select {
	case <-sub:
		t.Error("duplicate announcement for an already-known release")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCheckIgnoresOlderRelease(t *testing.T) {
	withReleaseServer(t, `{"tag_name":"v0.0.1","html_url":"https://example.com/releases/v0.0.1"}`)

	bus := events.NewBus()
	sub := bus.Subscribe(events.EventUpdateAvailable)
	w := NewWatcher(bus, zerolog.Nop())

	w.check(context.Background())

	if w.Behind() {
		t.Error("Behind() = true for an older release")
	}
	select {
	case <-sub:
		t.Error("update event published for an older release")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOlderThan(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0.3.1", "0.3.2", true},
		{"0.3.1", "0.4.0", true},
		{"0.3.1", "1.0.0", true},
		{"0.3.1", "0.3.1", false},
		{"0.3.2", "0.3.1", false},
		{"1.0.0", "0.9.9", false},
		{"v0.3.1", "0.3.2", true},
		{"0.3", "0.3.1", true},
	}
	for _, tt := range tests {
		if got := olderThan(tt.a, tt.b); got != tt.want {
			t.Errorf("olderThan(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
