/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ytplaylist implements the video-playlist playback backend. The
// ordered item list is resolved once per start through the resolver
// binary; items then play sequentially through the local player process.
package ytplaylist

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/backend/procplayer"
	"github.com/friendsincode/muninn_player/internal/sources"
	"github.com/friendsincode/muninn_player/internal/telemetry"
)

const (
	playlistURLFormat = "https://www.youtube.com/playlist?list=%s"
	watchURLBase      = "https://www.youtube.com/watch?v="
)

// Options configures the playlist backend.
type Options struct {
	PlayerBin   string
	ResolverBin string // defaults to yt-dlp
	AudioDevice string
	StopTimeout time.Duration
	// ResolveTimeout bounds the playlist resolution call.
	ResolveTimeout time.Duration
}

// Item is one resolved playlist entry.
type Item struct {
	VideoID string
	Title   string
}

// URI returns the watch URL the player process accepts.
func (it Item) URI() string {
	return watchURLBase + it.VideoID
}

type session struct {
	handle   backend.Handle
	sourceID string
	items    []Item
	idx      int
	ended    bool
}

// Backend plays a fixed playlist through the local player process.
type Backend struct {
	opts   Options
	player *procplayer.Player
	logger zerolog.Logger

	mu      sync.Mutex
	sess    *session
	cursors map[string]int
}

// New constructs the playlist backend.
func New(opts Options, logger zerolog.Logger) *Backend {
	if opts.ResolverBin == "" {
		opts.ResolverBin = "yt-dlp"
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 30 * time.Second
	}
	log := logger.With().Str("component", "ytplaylist").Logger()
	return &Backend{
		opts:    opts,
		player:  procplayer.New(opts.PlayerBin, opts.AudioDevice, opts.StopTimeout, log),
		logger:  log,
		cursors: make(map[string]int),
	}
}

// Kind reports the source kind this backend serves.
func (b *Backend) Kind() sources.Kind {
	return sources.KindPlaylistVideo
}

// Start resolves the playlist and launches the player on one item.
func (b *Backend) Start(ctx context.Context, hint backend.StartHint) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	begin := time.Now()

	items, err := b.resolve(ctx, hint.Source.Identifier)
	if err != nil {
		return backend.Handle{}, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}

	idx := b.startIndex(hint, items)
	item := items[idx]

	if err := b.player.Start(item.URI()); err != nil {
		return backend.Handle{}, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}

	h := backend.Handle{
		Generation: hint.Generation,
		ItemTitle:  item.Title,
		ItemURI:    item.URI(),
	}
	b.sess = &session{handle: h, sourceID: hint.Source.ID, items: items, idx: idx}
	b.cursors[hint.Source.ID] = idx

	telemetry.BackendStartDuration.WithLabelValues(string(sources.KindPlaylistVideo)).Observe(time.Since(begin).Seconds())
	b.logger.Info().Str("title", item.Title).Int("index", idx).Int("total", len(items)).Msg("playlist item started")
	return h, nil
}

// Stop tears down the player process, keeping the per-source cursor.
func (b *Backend) Stop(ctx context.Context, h backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sess == nil {
		return nil
	}
	b.sess = nil
	return b.player.Stop()
}

// SkipNext restarts the player on the following item, wrapping past the
// end of the playlist.
func (b *Backend) SkipNext(ctx context.Context, h backend.Handle) (backend.Handle, backend.SkipOutcome, error) {
	return b.skip(h, +1)
}

// SkipPrevious restarts the player on the preceding item. At the first
// item it replays that item rather than wrapping backwards.
func (b *Backend) SkipPrevious(ctx context.Context, h backend.Handle) (backend.Handle, backend.SkipOutcome, error) {
	return b.skip(h, -1)
}

func (b *Backend) skip(h backend.Handle, direction int) (backend.Handle, backend.SkipOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess := b.sess
	if sess == nil || sess.handle.Generation != h.Generation {
		return h, backend.SkipUnsupported, backend.ErrStaleHandle
	}
	if len(sess.items) == 0 {
		return h, backend.SkipUnsupported, nil
	}

	next := sess.idx + direction
	if next < 0 {
		next = 0
	}
	next %= len(sess.items)

	if err := b.player.Stop(); err != nil {
		return h, backend.SkipUnsupported, err
	}

	item := sess.items[next]
	if err := b.player.Start(item.URI()); err != nil {
		return h, backend.SkipUnsupported, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
	}

	sess.idx = next
	sess.ended = false
	sess.handle.ItemTitle = item.Title
	sess.handle.ItemURI = item.URI()
	b.cursors[sess.sourceID] = next
	b.logger.Info().Str("title", item.Title).Int("index", next).Msg("playlist item skipped to")
	return sess.handle, backend.SkipApplied, nil
}

// PollHealth maps the player process state onto the health contract.
func (b *Backend) PollHealth(ctx context.Context, h backend.Handle) backend.HealthStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess := b.sess
	if sess == nil || sess.handle.Generation != h.Generation {
		return backend.HealthStatus{State: backend.StateFailed, Reason: "no active session"}
	}

	switch b.player.State() {
	case procplayer.ProcRunning:
		return backend.HealthStatus{State: backend.StateRunning}
	case procplayer.ProcExitedOK:
		if !sess.ended {
			sess.ended = true
			if len(sess.items) > 0 {
				b.cursors[sess.sourceID] = (sess.idx + 1) % len(sess.items)
			}
		}
		return backend.HealthStatus{State: backend.StateEndedNaturally}
	case procplayer.ProcExitedErr:
		reason := "player exited with error"
		if err := b.player.ExitError(); err != nil {
			reason = err.Error()
		}
		return backend.HealthStatus{State: backend.StateFailed, Reason: reason}
	default:
		return backend.HealthStatus{State: backend.StateFailed, Reason: "player not running"}
	}
}

// Pause suspends the player process.
func (b *Backend) Pause(ctx context.Context, h backend.Handle) error {
	return b.player.Pause()
}

// Resume continues the paused player process.
func (b *Backend) Resume(ctx context.Context, h backend.Handle) error {
	return b.player.Resume()
}

// resolve runs the resolver binary in flat-playlist mode and parses one
// "id<TAB>title" line per entry.
func (b *Backend) resolve(ctx context.Context, playlistID string) ([]Item, error) {
	rctx, cancel := context.WithTimeout(ctx, b.opts.ResolveTimeout)
	defer cancel()

	cmd := exec.CommandContext(rctx, b.opts.ResolverBin,
		"--flat-playlist",
		"--print", "%(id)s\t%(title)s",
		fmt.Sprintf(playlistURLFormat, playlistID),
	)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("resolve playlist %s: %w", playlistID, err)
	}

	items, err := parseResolverOutput(&out)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("playlist %s resolved to no entries", playlistID)
	}
	return items, nil
}

func parseResolverOutput(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// Cut on the raw line: trimming first would eat the leading tab
		// of an id-less line and shift the title into the id field.
		id, title, _ := strings.Cut(scanner.Text(), "\t")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		items = append(items, Item{VideoID: id, Title: strings.TrimSpace(title)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read resolver output: %w", err)
	}
	return items, nil
}

func (b *Backend) startIndex(hint backend.StartHint, items []Item) int {
	if hint.ItemMarker != "" {
		for i, item := range items {
			if item.VideoID == hint.ItemMarker {
				return i
			}
		}
	}
	if cursor, ok := b.cursors[hint.Source.ID]; ok && cursor < len(items) {
		return cursor
	}
	return 0
}
