/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package procplayer manages the local media player process used by the
// video backends. One process plays one item; the owning backend decides
// what to launch next when the process exits.
package procplayer

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ProcState classifies the player process lifecycle.
type ProcState int

const (
	// ProcIdle means no process has been started or the last one was stopped.
	ProcIdle ProcState = iota
	// ProcRunning means the process is alive.
	ProcRunning
	// ProcExitedOK means the process finished the item and exited cleanly.
	ProcExitedOK
	// ProcExitedErr means the process exited with an error.
	ProcExitedErr
)

// Player wraps one external audio player process.
type Player struct {
	bin         string
	audioDevice string
	stopTimeout time.Duration
	logger      zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	exitErr error
	stopped bool // distinguishes a requested stop from a natural exit
	paused  bool
}

// New constructs a player wrapper around the given binary.
func New(bin, audioDevice string, stopTimeout time.Duration, logger zerolog.Logger) *Player {
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	return &Player{
		bin:         bin,
		audioDevice: audioDevice,
		stopTimeout: stopTimeout,
		logger:      logger.With().Str("component", "procplayer").Logger(),
	}
}

// Start launches the player for one URI. An already-running process is an
// error; callers stop first.
func (p *Player) Start(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.done != nil {
		select {
		case <-p.done:
			// Previous process has exited, ok to start a new one.
		default:
			return fmt.Errorf("player already running")
		}
	}

	args := []string{"--no-video", "--really-quiet", "--no-input-terminal"}
	if p.audioDevice != "" {
		args = append(args, "--audio-device="+p.audioDevice)
	}
	args = append(args, uri)

	cmd := exec.Command(p.bin, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}

	p.cmd = cmd
	p.done = make(chan struct{})
	p.exitErr = nil
	p.stopped = false
	p.paused = false

	go func(done chan struct{}, c *exec.Cmd) {
		err := c.Wait()
		p.mu.Lock()
		p.exitErr = err
		p.mu.Unlock()
		close(done)
		if err != nil {
			p.logger.Debug().Err(err).Msg("player process exited")
		}
	}(p.done, cmd)

	return nil
}

// Stop terminates the running process: interrupt first, kill after the
// stop timeout. Safe to call when nothing is running.
func (p *Player) Stop() error {
	p.mu.Lock()
	cmd := p.cmd
	done := p.done
	p.stopped = true
	paused := p.paused
	p.paused = false
	p.mu.Unlock()

	if cmd == nil || done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	default:
	}

	if cmd.Process != nil {
		// A stopped process cannot handle SIGINT; wake it first.
		if paused {
			_ = cmd.Process.Signal(syscall.SIGCONT)
		}
		_ = cmd.Process.Signal(os.Interrupt)
	}

	select {
	case <-time.After(p.stopTimeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	case <-done:
	}

	return nil
}

// Pause suspends the process with SIGSTOP.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running() {
		return fmt.Errorf("no running player to pause")
	}
	if err := p.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("pause player: %w", err)
	}
	p.paused = true
	return nil
}

// Resume continues a paused process with SIGCONT.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running() || !p.paused {
		return fmt.Errorf("no paused player to resume")
	}
	if err := p.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("resume player: %w", err)
	}
	p.paused = false
	return nil
}

// State reports the process lifecycle state.
func (p *Player) State() ProcState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.done == nil {
		return ProcIdle
	}

	select {
	case <-p.done:
	default:
		return ProcRunning
	}

	if p.stopped {
		return ProcIdle
	}
	if p.exitErr != nil {
		return ProcExitedErr
	}
	return ProcExitedOK
}

// ExitError returns the error from the last exit, if any.
func (p *Player) ExitError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *Player) running() bool {
	if p.cmd == nil || p.done == nil || p.cmd.Process == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
