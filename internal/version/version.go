/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version holds the build version and watches the project's
// release feed.
package version

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/events"
)

// Version is the running build, stamped via ldflags:
//
//	-X github.com/friendsincode/muninn_player/internal/version.Version=X.Y.Z
var Version = "0.3.1"

// releasesURL is a var so tests can point the watcher at a local server.
var releasesURL = "https://api.github.com/repos/friendsincode/muninn_player/releases/latest"

// Watcher checks the release feed once a day. The device has no screen
// to surface updates on, so a stale build goes to the log and onto the
// event bus for whoever maintains the fleet.
type Watcher struct {
	bus      *events.Bus
	logger   zerolog.Logger
	client   *http.Client
	interval time.Duration

	mu     sync.RWMutex
	latest string
}

// NewWatcher constructs the release watcher.
func NewWatcher(bus *events.Bus, logger zerolog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		logger:   logger.With().Str("component", "updates").Logger(),
		client:   &http.Client{Timeout: 10 * time.Second},
		interval: 24 * time.Hour,
	}
}

// Run checks once immediately and then on the watch interval until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// Latest returns the newest release seen, empty before the first
// successful check.
func (w *Watcher) Latest() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

// Behind reports whether the running build predates the newest release.
func (w *Watcher) Behind() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest != "" && olderThan(Version, w.latest)
}

func (w *Watcher) check(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "muninn-player/"+Version)

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Debug().Err(err).Msg("release check failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.logger.Debug().Int("status", resp.StatusCode).Msg("release check refused")
		return
	}

	var release struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		w.logger.Debug().Err(err).Msg("release response malformed")
		return
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	if latest == "" {
		return
	}

	w.mu.Lock()
	known := w.latest
	w.latest = latest
	w.mu.Unlock()

	// Announce each newer release once, not on every daily check.
	if latest == known || !olderThan(Version, latest) {
		return
	}
	w.logger.Info().
		Str("running", Version).
		Str("latest", latest).
		Str("url", release.HTMLURL).
		Msg("newer release available")
	w.bus.Publish(events.EventUpdateAvailable, events.Payload{
		"running": Version,
		"latest":  latest,
		"url":     release.HTMLURL,
	})
}

// olderThan reports whether version a predates b, comparing the numeric
// dot-separated fields.
func olderThan(a, b string) bool {
	af, bf := numericFields(a), numericFields(b)
	for i := range af {
		if af[i] != bf[i] {
			return af[i] < bf[i]
		}
	}
	return false
}

func numericFields(v string) [3]int {
	var out [3]int
	for i, part := range strings.SplitN(strings.TrimPrefix(v, "v"), ".", 3) {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}
