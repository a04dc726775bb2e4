package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/sources"
)

func testSpec() sources.SourceSpec {
	return sources.SourceSpec{
		ID:         "morning-mix",
		Kind:       sources.KindPlaylistService,
		Label:      "Morning Mix",
		Identifier: "37i9dQZF1DXcBWIGoYBM5M",
	}
}

func TestPollHealthMapsRemoteState(t *testing.T) {
	var hasTrack atomic.Bool
	hasTrack.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player/current" {
			return
		}
		if !hasTrack.Load() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write([]byte(`{"uri":"spotify:track:abc","name":"Song"}`))
	}))
	defer srv.Close()

	b := New(NewClient(srv.URL, 2*time.Second), zerolog.Nop())
	ctx := context.Background()

	h, err := b.Start(ctx, backend.StartHint{Source: testSpec(), Generation: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.ItemURI != "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M" {
		t.Errorf("handle uri = %q", h.ItemURI)
	}

	if hs := b.PollHealth(ctx, h); hs.State != backend.StateRunning {
		t.Errorf("state = %s, want running", hs.State)
	}

	hasTrack.Store(false)
	if hs := b.PollHealth(ctx, h); hs.State != backend.StateEndedNaturally {
		t.Errorf("state = %s, want ended", hs.State)
	}
}

func TestPollHealthFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	b := New(NewClient(srv.URL, 500*time.Millisecond), zerolog.Nop())
	ctx := context.Background()

	h, err := b.Start(ctx, backend.StartHint{Source: testSpec(), Generation: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	srv.Close()
	hs := b.PollHealth(ctx, h)
	if hs.State != backend.StateFailed {
		t.Errorf("state = %s, want failed", hs.State)
	}
	if hs.Reason == "" {
		t.Error("failure reason missing")
	}
}

func TestStaleHandleRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uri":"spotify:track:abc","name":"Song"}`))
	}))
	defer srv.Close()

	b := New(NewClient(srv.URL, 2*time.Second), zerolog.Nop())
	ctx := context.Background()

	old, err := b.Start(ctx, backend.StartHint{Source: testSpec(), Generation: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := b.Start(ctx, backend.StartHint{Source: testSpec(), Generation: 2}); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if hs := b.PollHealth(ctx, old); hs.State != backend.StateFailed {
		t.Errorf("stale handle state = %s, want failed", hs.State)
	}
	if _, _, err := b.SkipNext(ctx, old); err == nil {
		t.Error("stale skip succeeded, want error")
	}
}

func TestSkipReportsRemoteTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/player/current" {
			w.Write([]byte(`{"uri":"spotify:track:next123","name":"Next Song"}`))
		}
	}))
	defer srv.Close()

	b := New(NewClient(srv.URL, 2*time.Second), zerolog.Nop())
	ctx := context.Background()

	h, err := b.Start(ctx, backend.StartHint{Source: testSpec(), Generation: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	next, outcome, err := b.SkipNext(ctx, h)
	if err != nil {
		t.Fatalf("SkipNext: %v", err)
	}
	if outcome != backend.SkipApplied {
		t.Errorf("outcome = %v, want applied", outcome)
	}
	if next.ItemTitle != "Next Song" {
		t.Errorf("title = %q, want the track the remote moved to", next.ItemTitle)
	}
	if next.ItemURI != "spotify:track:next123" {
		t.Errorf("uri = %q, want the new track uri", next.ItemURI)
	}
}
