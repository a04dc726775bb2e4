/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package spotify implements the streaming-service playback backend. It
// never spawns a process of its own; all playback lives in the always-on
// connect client and this backend drives it over its local control API.
package spotify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/sources"
	"github.com/friendsincode/muninn_player/internal/telemetry"
)

// Backend drives the remote connect client for service playlists.
type Backend struct {
	client *Client
	logger zerolog.Logger

	mu         sync.Mutex
	generation uint64
	active     bool
}

// New constructs the service backend around a control API client.
func New(client *Client, logger zerolog.Logger) *Backend {
	return &Backend{
		client: client,
		logger: logger.With().Str("component", "spotify").Logger(),
	}
}

// Kind reports the source kind this backend serves.
func (b *Backend) Kind() sources.Kind {
	return sources.KindPlaylistService
}

// Start loads the playlist context into the remote player. The service
// keeps its own position within the playlist, so no item marker applies.
func (b *Backend) Start(ctx context.Context, hint backend.StartHint) (backend.Handle, error) {
	begin := time.Now()

	contextURI := "spotify:playlist:" + hint.Source.Identifier
	if err := b.client.Load(ctx, contextURI); err != nil {
		return backend.Handle{}, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}

	b.mu.Lock()
	b.generation = hint.Generation
	b.active = true
	b.mu.Unlock()

	telemetry.BackendStartDuration.WithLabelValues(string(sources.KindPlaylistService)).Observe(time.Since(begin).Seconds())
	b.logger.Info().Str("playlist", hint.Source.Identifier).Msg("service playlist loaded")

	return backend.Handle{
		Generation: hint.Generation,
		ItemTitle:  hint.Source.Label,
		ItemURI:    contextURI,
	}, nil
}

// Stop pauses the remote player. The connect client stays resident; a
// later Start reloads a context into it.
func (b *Backend) Stop(ctx context.Context, h backend.Handle) error {
	b.mu.Lock()
	active := b.active
	b.active = false
	b.mu.Unlock()

	if !active {
		return nil
	}
	if err := b.client.Pause(ctx); err != nil {
		// The remote player may already be gone; stopping stays best-effort.
		b.logger.Debug().Err(err).Msg("pause on stop failed")
	}
	return nil
}

// SkipNext asks the remote player for the next track.
func (b *Backend) SkipNext(ctx context.Context, h backend.Handle) (backend.Handle, backend.SkipOutcome, error) {
	if !b.sessionMatches(h) {
		return h, backend.SkipUnsupported, backend.ErrStaleHandle
	}
	if err := b.client.Next(ctx); err != nil {
		return h, backend.SkipUnsupported, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}
	return b.refreshedHandle(ctx, h), backend.SkipApplied, nil
}

// SkipPrevious asks the remote player for the previous track. At the
// first track the service restarts it rather than wrapping.
func (b *Backend) SkipPrevious(ctx context.Context, h backend.Handle) (backend.Handle, backend.SkipOutcome, error) {
	if !b.sessionMatches(h) {
		return h, backend.SkipUnsupported, backend.ErrStaleHandle
	}
	if err := b.client.Previous(ctx); err != nil {
		return h, backend.SkipUnsupported, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}
	return b.refreshedHandle(ctx, h), backend.SkipApplied, nil
}

// refreshedHandle asks the remote player what it moved to. Best effort;
// the service reports its track asynchronously, so a miss keeps the
// handle's previous description.
func (b *Backend) refreshedHandle(ctx context.Context, h backend.Handle) backend.Handle {
	track, err := b.client.Current(ctx)
	if err != nil || track == nil {
		return h
	}
	h.ItemTitle = track.Title
	if track.URI != "" {
		h.ItemURI = track.URI
	}
	return h
}

// PollHealth queries remote playback state. An unreachable control API is
// a failure; a reachable player with nothing loaded is a natural end.
func (b *Backend) PollHealth(ctx context.Context, h backend.Handle) backend.HealthStatus {
	if !b.sessionMatches(h) {
		return backend.HealthStatus{State: backend.StateFailed, Reason: "no active session"}
	}

	track, err := b.client.Current(ctx)
	if err != nil {
		return backend.HealthStatus{State: backend.StateFailed, Reason: err.Error()}
	}
	if track == nil {
		return backend.HealthStatus{State: backend.StateEndedNaturally}
	}
	return backend.HealthStatus{State: backend.StateRunning}
}

// Pause pauses remote playback.
func (b *Backend) Pause(ctx context.Context, h backend.Handle) error {
	if err := b.client.Pause(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}
	return nil
}

// Resume resumes remote playback.
func (b *Backend) Resume(ctx context.Context, h backend.Handle) error {
	if err := b.client.Resume(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}
	return nil
}

// NowPlaying reports the remote player's current track for status output.
func (b *Backend) NowPlaying(ctx context.Context) (*CurrentTrack, error) {
	return b.client.Current(ctx)
}

func (b *Backend) sessionMatches(h backend.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active && b.generation == h.Generation
}
