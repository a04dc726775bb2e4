/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package buttons

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// FIFOReader reads button names line by line from a named pipe. It exists
// for machines without GPIO hardware: echo a button name into the pipe
// and it becomes a press event.
type FIFOReader struct {
	path     string
	debounce *debouncer
	out      chan<- Event
	logger   zerolog.Logger
}

// NewFIFOReader creates a reader for the pipe at path, creating the pipe
// if it does not exist.
func NewFIFOReader(path string, window time.Duration, out chan<- Event, logger zerolog.Logger) (*FIFOReader, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := syscall.Mkfifo(path, 0o622); err != nil {
			return nil, fmt.Errorf("create input pipe %s: %w", path, err)
		}
	}
	return &FIFOReader{
		path:     path,
		debounce: newDebouncer(window),
		out:      out,
		logger:   logger.With().Str("component", "buttons").Logger(),
	}, nil
}

// Run reads the pipe until the context is cancelled. The pipe is
// reopened after each writer closes its end.
func (r *FIFOReader) Run(ctx context.Context) {
	r.logger.Info().Str("path", r.path).Msg("FIFO input ready")
	for ctx.Err() == nil {
		if err := r.readOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn().Err(err).Msg("input pipe read failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *FIFOReader) readOnce(ctx context.Context) error {
	// Opening O_RDONLY blocks until a writer appears; open read-write so
	// shutdown is not stuck behind a pipe with no writers.
	f, err := os.OpenFile(r.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open input pipe: %w", err)
	}
	defer f.Close()

	go func() {
		<-ctx.Done()
		f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := ButtonID(strings.TrimSpace(strings.ToLower(scanner.Text())))
		if name == "" {
			continue
		}
		if !name.Valid() {
			r.logger.Debug().Str("input", string(name)).Msg("unknown button name ignored")
			continue
		}
		now := time.Now()
		if !r.debounce.accept(name, now) {
			continue
		}
		emit(r.out, Event{Button: name, At: now})
	}
	return scanner.Err()
}
