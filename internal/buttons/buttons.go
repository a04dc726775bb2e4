/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package buttons turns physical input into discrete button press events.
// GPIO lines are the normal input; a named pipe serves machines without
// GPIO hardware.
package buttons

import (
	"sync"
	"time"

	"github.com/friendsincode/muninn_player/internal/telemetry"
)

// ButtonID identifies one of the four logical buttons.
type ButtonID string

const (
	ButtonPlayPause   ButtonID = "play_pause"
	ButtonPrevious    ButtonID = "previous"
	ButtonNext        ButtonID = "next"
	ButtonCycleSource ButtonID = "cycle_source"
)

// Valid reports whether the id names a known button.
func (b ButtonID) Valid() bool {
	switch b {
	case ButtonPlayPause, ButtonPrevious, ButtonNext, ButtonCycleSource:
		return true
	}
	return false
}

// Event is one debounced button press.
type Event struct {
	Button ButtonID
	At     time.Time
}

// debouncer drops presses of the same button arriving inside the window.
// GPIO hardware debounce handles contact bounce; this guards the FIFO
// path and double-fires alike.
type debouncer struct {
	window time.Duration

	mu   sync.Mutex
	last map[ButtonID]time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, last: make(map[ButtonID]time.Time)}
}

func (d *debouncer) accept(b ButtonID, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[b]; ok && at.Sub(prev) < d.window {
		return false
	}
	d.last[b] = at
	return true
}

// emit pushes an accepted press to the output channel without blocking.
// The controller drains one event at a time; presses landing while the
// buffer is full are dropped rather than queued up stale.
func emit(out chan<- Event, ev Event) {
	telemetry.ButtonPressesTotal.WithLabelValues(string(ev.Button)).Inc()
	select {
	case out <- ev:
	default:
	}
}
