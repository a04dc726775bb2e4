/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package backend defines the capability contract playback backends implement.
package backend

import (
	"context"
	"errors"

	"github.com/friendsincode/muninn_player/internal/sources"
)

var (
	// ErrBackendUnavailable indicates the external player or API could not
	// be reached. Always recoverable by retry or fallback.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrStaleHandle indicates an operation referenced a handle that is no
	// longer the backend's active session.
	ErrStaleHandle = errors.New("stale playback handle")
)

// State classifies a health poll result.
type State int

const (
	// StateRunning means playback is (still) in progress.
	StateRunning State = iota
	// StateEndedNaturally means the current item finished on its own.
	StateEndedNaturally
	// StateFailed means playback broke down; Reason carries the cause.
	StateFailed
	// StateLiveAvailable means a live broadcast is available on a channel
	// source and should pre-empt sequential playback.
	StateLiveAvailable
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateEndedNaturally:
		return "ended"
	case StateFailed:
		return "failed"
	case StateLiveAvailable:
		return "live_available"
	default:
		return "unknown"
	}
}

// HealthStatus is the result of one health poll.
type HealthStatus struct {
	State  State
	Reason string // set when State is StateFailed
}

// SkipOutcome reports how a backend handled a skip request.
type SkipOutcome int

const (
	// SkipApplied means the backend moved to another item.
	SkipApplied SkipOutcome = iota
	// SkipUnsupported means the backend has no addressable item in that
	// direction; the controller folds this into the natural-end path.
	SkipUnsupported
)

// Handle identifies one playback session started by a backend. The
// controller tags it with a generation so stale completions can be
// discarded after the target source changed underneath them.
type Handle struct {
	Generation uint64
	ItemTitle  string
	ItemURI    string
	Live       bool
}

// StartHint carries what the controller knows when requesting a start.
type StartHint struct {
	Source     sources.SourceSpec
	ItemMarker string // resume marker from the previous run, may be empty
	Generation uint64
	LiveURI    string // set when the start targets a detected live item
}

// Backend is the capability a playback unit offers for one source kind.
// Start returns once the underlying playback has been launched, not once
// audio is audible; genuine readiness is inferred from PollHealth.
type Backend interface {
	// Kind reports which source kind this backend serves.
	Kind() sources.Kind

	// Start launches playback for the hinted source.
	Start(ctx context.Context, hint StartHint) (Handle, error)

	// Stop tears the session down. Safe to call on an already-stopped handle.
	Stop(ctx context.Context, h Handle) error

	// SkipNext moves to the next item within the session. On SkipApplied
	// the returned Handle describes the item now playing.
	SkipNext(ctx context.Context, h Handle) (Handle, SkipOutcome, error)

	// SkipPrevious moves to the previous item within the session. On
	// SkipApplied the returned Handle describes the item now playing.
	SkipPrevious(ctx context.Context, h Handle) (Handle, SkipOutcome, error)

	// PollHealth reports the session's current status.
	PollHealth(ctx context.Context, h Handle) HealthStatus

	// Pause suspends audio without tearing the session down.
	Pause(ctx context.Context, h Handle) error

	// Resume continues a paused session.
	Resume(ctx context.Context, h Handle) error
}

// LiveProber is implemented by channel backends that can detect a
// currently-broadcasting live item.
type LiveProber interface {
	// ProbeLive reports whether a live item is available and its URI.
	ProbeLive(ctx context.Context, spec sources.SourceSpec) (bool, string, error)
}
