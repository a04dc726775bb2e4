/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ytchannel implements the channel-kind playback backend. Items
// come from the channel's upload feed; a separate probe watches the
// channel's live endpoint so a running broadcast can pre-empt the feed.
package ytchannel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/backend/procplayer"
	"github.com/friendsincode/muninn_player/internal/feedcache"
	"github.com/friendsincode/muninn_player/internal/sources"
	"github.com/friendsincode/muninn_player/internal/telemetry"
)

// Options configures the channel backend.
type Options struct {
	PlayerBin   string
	AudioDevice string
	StopTimeout time.Duration
	HTTPTimeout time.Duration
}

type session struct {
	handle   backend.Handle
	sourceID string
	items    []FeedItem
	idx      int
	ended    bool
}

// Backend plays a channel's uploads sequentially through the local
// player process, one process per item.
type Backend struct {
	opts   Options
	cache  *feedcache.Cache
	client *http.Client
	probe  *http.Client
	player *procplayer.Player
	logger zerolog.Logger

	mu      sync.Mutex
	sess    *session
	cursors map[string]int // source id -> next feed index
}

// New constructs the channel backend. The cache may be nil-safe disabled
// but must not be nil.
func New(opts Options, cache *feedcache.Cache, logger zerolog.Logger) *Backend {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	log := logger.With().Str("component", "ytchannel").Logger()
	return &Backend{
		opts:    opts,
		cache:   cache,
		client:  &http.Client{Timeout: opts.HTTPTimeout},
		probe:   noRedirectClient(opts.HTTPTimeout),
		player:  procplayer.New(opts.PlayerBin, opts.AudioDevice, opts.StopTimeout, log),
		logger:  log,
		cursors: make(map[string]int),
	}
}

// Kind reports the source kind this backend serves.
func (b *Backend) Kind() sources.Kind {
	return sources.KindChannel
}

// Start resolves the channel feed and launches the player on one item.
// A LiveURI hint bypasses feed resolution and plays the broadcast.
func (b *Backend) Start(ctx context.Context, hint backend.StartHint) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	begin := time.Now()

	if hint.LiveURI != "" {
		h := backend.Handle{
			Generation: hint.Generation,
			ItemTitle:  "live broadcast",
			ItemURI:    hint.LiveURI,
			Live:       true,
		}
		if err := b.player.Start(hint.LiveURI); err != nil {
			return backend.Handle{}, fmt.Errorf("%w: %v", backend.ErrBackendUnavailable, err)
		}
		b.sess = &session{handle: h, sourceID: hint.Source.ID}
		telemetry.BackendStartDuration.WithLabelValues(string(sources.KindChannel)).Observe(time.Since(begin).Seconds())
		return h, nil
	}

	items, err := b.resolveFeed(ctx, hint.Source)
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

	telemetry.BackendStartDuration.WithLabelValues(string(sources.KindChannel)).Observe(time.Since(begin).Seconds())
	b.logger.Info().Str("title", item.Title).Str("video", item.VideoID).Msg("channel item started")
	return h, nil
}

// Stop tears down the player process. The per-source cursor survives so
// cycling back to the channel continues where it left off.
func (b *Backend) Stop(ctx context.Context, h backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sess == nil {
		return nil
	}
	b.sess = nil
	return b.player.Stop()
}

// SkipNext restarts the player on the following feed item, wrapping past
// the end of the feed.
func (b *Backend) SkipNext(ctx context.Context, h backend.Handle) (backend.Handle, backend.SkipOutcome, error) {
	return b.skip(h, +1)
}

// SkipPrevious restarts the player on the preceding feed item. At the
// first item it replays that item rather than wrapping backwards.
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
	if sess.handle.Live || len(sess.items) == 0 {
		// A live broadcast has no adjacent items to move to.
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
	b.logger.Info().Str("title", item.Title).Int("index", next).Msg("channel item skipped to")
	return sess.handle, backend.SkipApplied, nil
}

// PollHealth maps the player process state onto the health contract. The
// first poll after a clean exit advances the per-source cursor so the
// next start plays the following item.
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
			if !sess.handle.Live && len(sess.items) > 0 {
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

// ProbeLive checks the channel's live endpoint for a running broadcast.
func (b *Backend) ProbeLive(ctx context.Context, spec sources.SourceSpec) (bool, string, error) {
	return probeLive(ctx, b.probe, spec.Identifier)
}

func (b *Backend) resolveFeed(ctx context.Context, spec sources.SourceSpec) ([]FeedItem, error) {
	var items []FeedItem
	if b.cache.Get(ctx, spec.Identifier, &items) && len(items) > 0 {
		return items, nil
	}

	items, err := fetchFeed(ctx, b.client, spec.Identifier)
	if err != nil {
		return nil, err
	}
	b.cache.Set(ctx, spec.Identifier, items)
	return items, nil
}

// startIndex picks the feed position for a new session: an explicit
// resume marker wins, then the stored cursor, then the top of the feed.
// A marker that has dropped off the feed means the feed moved on, so
// playback restarts at the newest entry.
func (b *Backend) startIndex(hint backend.StartHint, items []FeedItem) int {
	if hint.ItemMarker != "" {
		for i, item := range items {
			if item.VideoID == hint.ItemMarker {
				return i
			}
		}
		return 0
	}
	if cursor, ok := b.cursors[hint.Source.ID]; ok && cursor < len(items) {
		return cursor
	}
	return 0
}
