/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package buttons

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

// GPIOReader watches button lines on a gpiochip and emits press events
// on falling edges. Buttons are wired active-low with pull-ups.
type GPIOReader struct {
	chip     string
	lines    map[ButtonID]int
	debounce *debouncer
	out      chan<- Event
	logger   zerolog.Logger

	requests []*gpiocdev.Line
}

// NewGPIOReader creates a reader for the given chip and line mapping.
func NewGPIOReader(chip string, lines map[ButtonID]int, window time.Duration, out chan<- Event, logger zerolog.Logger) *GPIOReader {
	return &GPIOReader{
		chip:     chip,
		lines:    lines,
		debounce: newDebouncer(window),
		out:      out,
		logger:   logger.With().Str("component", "buttons").Logger(),
	}
}

// Start requests all configured lines. Failing to claim any line releases
// the ones already claimed and returns the error.
func (r *GPIOReader) Start() error {
	for button, offset := range r.lines {
		b := button
		line, err := gpiocdev.RequestLine(r.chip, offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(10*time.Millisecond),
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				r.handleEdge(b)
			}),
		)
		if err != nil {
			r.Close()
			return fmt.Errorf("request %s line %d on %s: %w", button, offset, r.chip, err)
		}
		r.requests = append(r.requests, line)
		r.logger.Debug().Str("button", string(button)).Int("line", offset).Msg("button line claimed")
	}
	r.logger.Info().Str("chip", r.chip).Int("buttons", len(r.requests)).Msg("GPIO input ready")
	return nil
}

func (r *GPIOReader) handleEdge(button ButtonID) {
	now := time.Now()
	if !r.debounce.accept(button, now) {
		return
	}
	emit(r.out, Event{Button: button, At: now})
}

// Close releases all claimed lines.
func (r *GPIOReader) Close() {
	for _, line := range r.requests {
		line.Close()
	}
	r.requests = nil
}
