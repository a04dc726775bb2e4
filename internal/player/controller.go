/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player implements the playback controller: the single owner of
// playback state. Button events, health polls, liveness probes, and
// shutdown all funnel into one serialized loop, so no two transitions
// ever race.
package player

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/buttons"
	"github.com/friendsincode/muninn_player/internal/events"
	"github.com/friendsincode/muninn_player/internal/models"
	"github.com/friendsincode/muninn_player/internal/sources"
	"github.com/friendsincode/muninn_player/internal/telemetry"
)

// ResumeStore is the persistence contract for the resume record.
type ResumeStore interface {
	Load() *models.ResumeRecord
	Save(sourceIndex int, itemMarker string) error
}

// HistoryLog is the append-only contract for playback history.
type HistoryLog interface {
	Append(sourceLabel, itemTitle string, event models.HistoryEvent, detail string)
}

// Options tunes the controller's retry and polling behavior.
type Options struct {
	MaxRetry       int
	RetryDelay     time.Duration
	HealthInterval time.Duration
	LiveInterval   time.Duration
	StartupGrace   time.Duration
	NetworkWait    time.Duration
	// NetworkProbeHost is resolved to decide the network is up.
	NetworkProbeHost string
}

// DefaultOptions returns conservative defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetry:         3,
		RetryDelay:       2 * time.Second,
		HealthInterval:   2 * time.Second,
		LiveInterval:     15 * time.Second,
		StartupGrace:     10 * time.Second,
		NetworkWait:      30 * time.Second,
		NetworkProbeHost: "www.youtube.com",
	}
}

// Status is a read-only snapshot of playback state.
type Status struct {
	Phase       Phase     `json:"phase"`
	SourceIndex int       `json:"source_index"`
	SourceLabel string    `json:"source_label"`
	SourceKind  string    `json:"source_kind"`
	ItemTitle   string    `json:"item_title,omitempty"`
	ItemURI     string    `json:"item_uri,omitempty"`
	Live        bool      `json:"live"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	RetryCount  int       `json:"retry_count"`
	LastError   string    `json:"last_error,omitempty"`
}

type startResult struct {
	gen    uint64
	handle backend.Handle
	err    error
}

type skipResult struct {
	gen     uint64
	handle  backend.Handle
	outcome backend.SkipOutcome
	title   string
	err     error
}

type liveResult struct {
	gen  uint64
	live bool
	uri  string
	err  error
}

// Controller owns playback state and the active backend.
type Controller struct {
	registry *sources.Registry
	backends map[sources.Kind]backend.Backend
	store    ResumeStore
	history  HistoryLog
	bus      *events.Bus
	opts     Options
	logger   zerolog.Logger

	buttonCh <-chan buttons.Event
	starts   chan startResult
	skips    chan skipResult
	lives    chan liveResult

	runCtx context.Context

	mu        sync.RWMutex
	phase     Phase
	itemTitle string
	itemURI   string
	live      bool
	startedAt time.Time
	retries   int
	lastError string

	// Loop-only fields; the serialized loop is the sole writer.
	generation     uint64
	handle         backend.Handle
	handleSet      bool
	sessionBackend backend.Backend
	startInitiated time.Time
	nextRetryAt    time.Time
}

// New constructs the controller. The backends map must cover every kind
// present in the registry; a missing backend surfaces as a per-source
// failure, not a startup error.
func New(
	registry *sources.Registry,
	backends map[sources.Kind]backend.Backend,
	store ResumeStore,
	history HistoryLog,
	bus *events.Bus,
	buttonCh <-chan buttons.Event,
	opts Options,
	logger zerolog.Logger,
) *Controller {
	return &Controller{
		registry: registry,
		backends: backends,
		store:    store,
		history:  history,
		bus:      bus,
		opts:     opts,
		logger:   logger.With().Str("component", "player").Logger(),
		buttonCh: buttonCh,
		starts:   make(chan startResult, 8),
		skips:    make(chan skipResult, 8),
		lives:    make(chan liveResult, 8),
		runCtx:   context.Background(),
		phase:    PhaseIdle,
	}
}

// Run executes the controller loop until the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx

	c.waitForNetwork(ctx)
	if ctx.Err() != nil {
		c.shutdown()
		return nil
	}

	marker := c.seedFromResume()
	c.setPhase(PhaseStarting)
	c.beginStart(marker, "")

	health := time.NewTicker(c.opts.HealthInterval)
	defer health.Stop()
	live := time.NewTicker(c.opts.LiveInterval)
	defer live.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev := <-c.buttonCh:
			c.handleButton(ev)
		case res := <-c.starts:
			c.handleStartResult(res)
		case res := <-c.skips:
			c.handleSkipResult(res)
		case res := <-c.lives:
			c.handleLiveResult(res)
		case <-health.C:
			c.handleHealthTick()
		case <-live.C:
			c.handleLiveTick()
		}
	}
}

// Snapshot returns the current playback state for status surfaces.
func (c *Controller) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spec := c.registry.Current()
	return Status{
		Phase:       c.phase,
		SourceIndex: c.registry.Index(),
		SourceLabel: spec.Label,
		SourceKind:  string(spec.Kind),
		ItemTitle:   c.itemTitle,
		ItemURI:     c.itemURI,
		Live:        c.live,
		StartedAt:   c.startedAt,
		RetryCount:  c.retries,
		LastError:   c.lastError,
	}
}

// seedFromResume applies the persisted resume record, falling back to
// source zero on first boot or when the record no longer fits.
func (c *Controller) seedFromResume() string {
	record := c.store.Load()
	if record == nil {
		c.logger.Info().Msg("no resume record, starting from first source")
		telemetry.ActiveSourceIndex.Set(0)
		return ""
	}
	c.mu.Lock()
	_, err := c.registry.Select(record.SourceIndex)
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn().Int("source_index", record.SourceIndex).Msg("resume index out of range, starting from first source")
		telemetry.ActiveSourceIndex.Set(0)
		return ""
	}
	c.logger.Info().Int("source_index", record.SourceIndex).Str("marker", record.ItemMarker).Msg("resuming from saved state")
	telemetry.ActiveSourceIndex.Set(float64(record.SourceIndex))
	return record.ItemMarker
}

// waitForNetwork blocks until name resolution works or the wait budget
// runs out. Playback starts either way; a dead network just means the
// first starts fail into the normal recovery path.
func (c *Controller) waitForNetwork(ctx context.Context) {
	if c.opts.NetworkWait <= 0 || c.opts.NetworkProbeHost == "" {
		return
	}

	deadline := time.Now().Add(c.opts.NetworkWait)
	resolver := &net.Resolver{}
	for time.Now().Before(deadline) && ctx.Err() == nil {
		lctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, err := resolver.LookupHost(lctx, c.opts.NetworkProbeHost)
		cancel()
		if err == nil {
			c.logger.Debug().Msg("network is up")
			return
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return
		}
	}
	c.logger.Warn().Dur("waited", c.opts.NetworkWait).Msg("network not confirmed, starting anyway")
}

// setPhase applies a validated phase transition.
func (c *Controller) setPhase(to Phase) {
	c.mu.Lock()
	from := c.phase
	if from == to {
		c.mu.Unlock()
		return
	}
	if !isValidTransition(from, to) {
		c.mu.Unlock()
		c.logger.Error().Str("from", string(from)).Str("to", string(to)).Msg("invalid phase transition dropped")
		return
	}
	c.phase = to
	if to == PhasePlaying {
		c.retries = 0
	}
	c.mu.Unlock()

	telemetry.PhaseTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	c.bus.Publish(events.EventPhaseChange, events.Payload{"from": string(from), "to": string(to)})
	c.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("phase transition")
}

func (c *Controller) currentPhase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// beginStart launches playback of the current source. The resume record
// and the history entry land before the backend is asked to start, so a
// crash mid-transition resumes into the intended state. The previous
// session is stopped before the new one starts; the audio device is
// exclusive.
func (c *Controller) beginStart(marker, liveURI string) {
	spec := c.registry.Current()

	bk := c.backends[spec.Kind]
	if bk == nil {
		c.failure("no backend for source kind " + string(spec.Kind))
		return
	}

	if err := c.store.Save(c.registry.Index(), marker); err != nil {
		c.logger.Warn().Err(err).Msg("resume record write failed")
	}
	detail := ""
	if marker != "" {
		detail = "resume marker " + marker
	}
	c.history.Append(spec.Label, "", models.HistoryStarted, detail)

	c.generation++
	gen := c.generation
	c.handleSet = false
	c.startInitiated = time.Now()

	prevBackend := c.sessionBackend
	prevHandle := c.handle
	havePrev := prevBackend != nil && prevHandle.Generation > 0
	c.sessionBackend = bk

	hint := backend.StartHint{
		Source:     spec,
		ItemMarker: marker,
		Generation: gen,
		LiveURI:    liveURI,
	}

	go func() {
		if havePrev {
			sctx, cancel := context.WithTimeout(c.runCtx, 10*time.Second)
			_ = prevBackend.Stop(sctx, prevHandle)
			cancel()
		}
		h, err := bk.Start(c.runCtx, hint)
		c.starts <- startResult{gen: gen, handle: h, err: err}
	}()
}

func (c *Controller) handleStartResult(res startResult) {
	if res.gen != c.generation {
		c.logger.Debug().Uint64("gen", res.gen).Uint64("current", c.generation).Msg("stale start result discarded")
		return
	}
	if c.currentPhase() != PhaseStarting {
		return
	}
	if res.err != nil {
		c.failure(res.err.Error())
		return
	}

	c.handle = res.handle
	c.handleSet = true
	c.mu.Lock()
	c.itemTitle = res.handle.ItemTitle
	c.itemURI = res.handle.ItemURI
	c.live = res.handle.Live
	c.mu.Unlock()
}

func (c *Controller) handleHealthTick() {
	switch c.currentPhase() {
	case PhaseStarting:
		if !c.handleSet {
			if time.Since(c.startInitiated) > c.opts.StartupGrace {
				c.failure("backend start timed out")
			}
			return
		}
		c.applyHealth(c.pollHealth())
	case PhasePlaying:
		c.applyHealth(c.pollHealth())
	case PhaseRecovering:
		if time.Now().Before(c.nextRetryAt) {
			return
		}
		c.mu.RLock()
		retries := c.retries
		c.mu.RUnlock()
		if retries >= c.opts.MaxRetry {
			c.fallback()
		} else {
			c.retry()
		}
	}
}

func (c *Controller) pollHealth() backend.HealthStatus {
	bk := c.sessionBackend
	if bk == nil {
		return backend.HealthStatus{State: backend.StateFailed, Reason: "no backend"}
	}
	pctx, cancel := context.WithTimeout(c.runCtx, c.opts.HealthInterval)
	defer cancel()
	return bk.PollHealth(pctx, c.handle)
}

func (c *Controller) applyHealth(hs backend.HealthStatus) {
	switch hs.State {
	case backend.StateRunning:
		c.toPlaying()
	case backend.StateEndedNaturally:
		c.advanceItem()
	case backend.StateFailed:
		c.failure(hs.Reason)
	case backend.StateLiveAvailable:
		// The backend saw a broadcast but carries no URI; confirm and
		// fetch it before pre-empting sequential playback.
		c.launchLiveProbe()
	}
}

func (c *Controller) toPlaying() {
	if c.currentPhase() == PhasePlaying {
		return
	}
	c.setPhase(PhasePlaying)

	c.mu.Lock()
	c.startedAt = time.Now()
	c.lastError = ""
	title, uri, live := c.itemTitle, c.itemURI, c.live
	c.mu.Unlock()

	if err := c.store.Save(c.registry.Index(), markerFromURI(uri)); err != nil {
		c.logger.Warn().Err(err).Msg("resume record write failed")
	}

	spec := c.registry.Current()
	c.bus.Publish(events.EventNowPlaying, events.Payload{
		"title":  title,
		"uri":    uri,
		"source": spec.Label,
		"live":   live,
	})
	c.logger.Info().Str("source", spec.Label).Str("title", title).Bool("live", live).Msg("playing")
}

// advanceItem handles a natural end: switch within the same source and
// start the next item. The backend's own cursor supplies the item.
func (c *Controller) advanceItem() {
	c.setPhase(PhaseSwitching)
	c.setPhase(PhaseStarting)
	c.beginStart("", "")
}

// failure routes any per-source playback error into Recovering. Errors
// never crash the daemon; they are bounded by the retry budget.
func (c *Controller) failure(reason string) {
	spec := c.registry.Current()

	c.mu.Lock()
	c.lastError = reason
	c.retries++
	title := c.itemTitle
	c.mu.Unlock()

	c.history.Append(spec.Label, title, models.HistoryFailed, reason)
	telemetry.PlaybackFailuresTotal.WithLabelValues(string(spec.Kind)).Inc()
	c.bus.Publish(events.EventPlaybackFailed, events.Payload{
		"source": spec.Label,
		"reason": reason,
	})
	c.logger.Warn().Str("source", spec.Label).Str("reason", reason).Msg("playback failed")

	// Invalidate any in-flight start so its late completion is discarded.
	c.generation++
	c.handleSet = false

	c.setPhase(PhaseRecovering)
	c.nextRetryAt = time.Now().Add(c.opts.RetryDelay)
}

// retry re-starts the same source after a failure. The failure count is
// charged when the failure lands, not here, so consecutive failures are
// bounded by the retry budget before fallback kicks in.
func (c *Controller) retry() {
	c.mu.RLock()
	retries := c.retries
	marker := markerFromURI(c.itemURI)
	c.mu.RUnlock()

	c.logger.Info().Int("attempt", retries).Int("max", c.opts.MaxRetry).Msg("retrying source")
	c.setPhase(PhaseStarting)
	c.beginStart(marker, "")
}

// fallback gives up on the current source and advances to the next one.
func (c *Controller) fallback() {
	fromSpec := c.registry.Current()
	c.setPhase(PhaseSwitching)

	c.mu.Lock()
	spec := c.registry.Advance()
	c.retries = 0
	c.itemTitle = ""
	c.itemURI = ""
	c.live = false
	c.mu.Unlock()

	telemetry.SourceFallbacksTotal.Inc()
	telemetry.ActiveSourceIndex.Set(float64(c.registry.Index()))
	c.history.Append(fromSpec.Label, "", models.HistorySwitched, "fallback to "+spec.Label)
	c.bus.Publish(events.EventSourceSwitched, events.Payload{
		"from":  fromSpec.Label,
		"to":    spec.Label,
		"index": c.registry.Index(),
	})
	c.logger.Info().Str("from", fromSpec.Label).Str("to", spec.Label).Msg("falling back to next source")

	c.setPhase(PhaseStarting)
	c.beginStart("", "")
}

// cycleSource is the explicit source-cycle button: always switches,
// discarding any in-flight retry budget.
func (c *Controller) cycleSource() {
	if c.currentPhase() == PhaseStopped {
		return
	}
	fromSpec := c.registry.Current()
	c.setPhase(PhaseSwitching)

	c.mu.Lock()
	spec := c.registry.Advance()
	c.retries = 0
	c.itemTitle = ""
	c.itemURI = ""
	c.live = false
	c.mu.Unlock()

	telemetry.ActiveSourceIndex.Set(float64(c.registry.Index()))
	c.history.Append(fromSpec.Label, "", models.HistorySwitched, "cycled to "+spec.Label)
	c.bus.Publish(events.EventSourceSwitched, events.Payload{
		"from":  fromSpec.Label,
		"to":    spec.Label,
		"index": c.registry.Index(),
	})
	c.logger.Info().Str("from", fromSpec.Label).Str("to", spec.Label).Msg("source cycled")

	c.setPhase(PhaseStarting)
	c.beginStart("", "")
}

func (c *Controller) handleButton(ev buttons.Event) {
	c.bus.Publish(events.EventButtonPress, events.Payload{"button": string(ev.Button)})

	switch ev.Button {
	case buttons.ButtonPlayPause:
		c.togglePause()
	case buttons.ButtonNext:
		c.skipItem(true)
	case buttons.ButtonPrevious:
		c.skipItem(false)
	case buttons.ButtonCycleSource:
		c.cycleSource()
	}
}

// togglePause alternates strictly between Playing and Paused; in any
// other phase the press is a no-op, never queued.
func (c *Controller) togglePause() {
	bk := c.sessionBackend

	switch c.currentPhase() {
	case PhasePlaying:
		if bk == nil || !c.handleSet {
			return
		}
		pctx, cancel := context.WithTimeout(c.runCtx, 5*time.Second)
		err := bk.Pause(pctx, c.handle)
		cancel()
		if err != nil {
			c.logger.Warn().Err(err).Msg("pause failed")
			return
		}
		c.setPhase(PhasePaused)
	case PhasePaused:
		if bk == nil || !c.handleSet {
			return
		}
		pctx, cancel := context.WithTimeout(c.runCtx, 5*time.Second)
		err := bk.Resume(pctx, c.handle)
		cancel()
		if err != nil {
			c.logger.Warn().Err(err).Msg("resume failed")
			return
		}
		c.setPhase(PhasePlaying)
	case PhaseIdle:
		// Before the first start, the button doubles as power-on.
		c.setPhase(PhaseStarting)
		c.beginStart("", "")
	}
}

// skipItem requests the backend's next/previous item. An unsupported
// skip folds into the natural-end auto-advance path.
func (c *Controller) skipItem(forward bool) {
	phase := c.currentPhase()
	if phase == PhaseStopped || phase == PhaseRecovering || phase == PhaseSwitching {
		return
	}
	bk := c.sessionBackend
	if bk == nil || !c.handleSet {
		return
	}

	c.mu.RLock()
	title := c.itemTitle
	c.mu.RUnlock()

	gen := c.generation
	h := c.handle
	c.setPhase(PhaseStarting)

	go func() {
		sctx, cancel := context.WithTimeout(c.runCtx, 15*time.Second)
		defer cancel()
		var (
			next    backend.Handle
			outcome backend.SkipOutcome
			err     error
		)
		if forward {
			next, outcome, err = bk.SkipNext(sctx, h)
		} else {
			next, outcome, err = bk.SkipPrevious(sctx, h)
		}
		c.skips <- skipResult{gen: gen, handle: next, outcome: outcome, title: title, err: err}
	}()
}

func (c *Controller) handleSkipResult(res skipResult) {
	if res.gen != c.generation {
		c.logger.Debug().Msg("stale skip result discarded")
		return
	}
	if res.err != nil {
		c.failure(res.err.Error())
		return
	}

	spec := c.registry.Current()
	switch res.outcome {
	case backend.SkipApplied:
		c.handle = res.handle
		c.mu.Lock()
		c.itemTitle = res.handle.ItemTitle
		c.itemURI = res.handle.ItemURI
		c.live = res.handle.Live
		c.mu.Unlock()
		// The backend already moved; persist the skip target so a crash
		// resumes on it, not on the item skipped away from.
		if err := c.store.Save(c.registry.Index(), markerFromURI(res.handle.ItemURI)); err != nil {
			c.logger.Warn().Err(err).Msg("resume record write failed")
		}
		c.history.Append(spec.Label, res.title, models.HistorySkipped, "")
		// Health polling confirms the new item and moves us to Playing.
	case backend.SkipUnsupported:
		c.advanceItem()
	}
}

// handleLiveTick probes channel sources for a live broadcast while they
// play sequentially.
func (c *Controller) handleLiveTick() {
	if c.currentPhase() != PhasePlaying {
		return
	}
	c.mu.RLock()
	alreadyLive := c.live
	c.mu.RUnlock()
	if alreadyLive {
		return
	}
	if c.registry.Current().Kind != sources.KindChannel {
		return
	}
	c.launchLiveProbe()
}

// launchLiveProbe asks the current source's backend for a live item. The
// result arrives on the loop's live channel like a ticker-driven probe.
func (c *Controller) launchLiveProbe() {
	spec := c.registry.Current()
	prober, ok := c.backends[spec.Kind].(backend.LiveProber)
	if !ok {
		return
	}

	gen := c.generation
	go func() {
		pctx, cancel := context.WithTimeout(c.runCtx, 10*time.Second)
		defer cancel()
		isLive, uri, err := prober.ProbeLive(pctx, spec)
		c.lives <- liveResult{gen: gen, live: isLive, uri: uri, err: err}
	}()
}

func (c *Controller) handleLiveResult(res liveResult) {
	if res.gen != c.generation {
		return
	}
	if res.err != nil {
		c.logger.Debug().Err(res.err).Msg("live probe failed")
		return
	}
	if !res.live || res.uri == "" {
		return
	}
	if c.currentPhase() != PhasePlaying {
		return
	}
	c.goLive(res.uri)
}

// goLive pre-empts sequential playback with a detected live broadcast.
func (c *Controller) goLive(uri string) {
	spec := c.registry.Current()

	telemetry.LiveInterruptsTotal.Inc()
	c.bus.Publish(events.EventLiveDetected, events.Payload{
		"source": spec.Label,
		"uri":    uri,
	})
	c.history.Append(spec.Label, "live broadcast", models.HistorySwitched, "live stream detected")
	c.logger.Info().Str("source", spec.Label).Msg("live broadcast detected, switching")

	c.setPhase(PhaseSwitching)
	c.setPhase(PhaseStarting)
	c.beginStart("", uri)
}

// shutdown stops the active backend and persists final state.
func (c *Controller) shutdown() {
	c.setPhase(PhaseStopped)

	c.mu.RLock()
	marker := markerFromURI(c.itemURI)
	c.mu.RUnlock()

	if bk := c.sessionBackend; bk != nil && c.handleSet {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := bk.Stop(sctx, c.handle); err != nil {
			c.logger.Warn().Err(err).Msg("backend stop failed during shutdown")
		}
		cancel()
	}

	if err := c.store.Save(c.registry.Index(), marker); err != nil {
		c.logger.Warn().Err(err).Msg("final resume record write failed")
	}
	c.logger.Info().Msg("player stopped")
}

// markerFromURI extracts a resume marker from an item URI. Watch URLs
// yield their video id; anything else has no marker.
func markerFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(u.Path, "/watch") {
		return ""
	}
	return u.Query().Get("v")
}
