/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ytchannel

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// URL formats are variables so tests can point them at a local server.
var (
	feedURLFormat = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
	liveURLFormat = "https://www.youtube.com/channel/%s/live"
)

const (
	watchURLBase = "https://www.youtube.com/watch?v="

	// maxProbeBody bounds how much of the live page we scan for markers.
	maxProbeBody = 512 * 1024
)

// FeedItem is one playable entry resolved from a channel feed.
type FeedItem struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// URI returns the watch URL the player process accepts.
func (it FeedItem) URI() string {
	return watchURLBase + it.VideoID
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	VideoID string `xml:"videoId"`
}

var (
	watchLinkPattern = regexp.MustCompile(`watch\?v=([A-Za-z0-9_-]{11})`)
	liveNowPattern   = regexp.MustCompile(`"isLiveNow"\s*:\s*true`)
)

// fetchFeed resolves the channel's upload feed into an ordered item list,
// newest first, matching the feed's native ordering.
func fetchFeed(ctx context.Context, client *http.Client, channelID string) ([]FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(feedURLFormat, channelID), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch channel feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch channel feed: unexpected status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode channel feed: %w", err)
	}

	items := make([]FeedItem, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if entry.VideoID == "" {
			continue
		}
		items = append(items, FeedItem{VideoID: entry.VideoID, Title: entry.Title})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("channel feed %s has no playable entries", channelID)
	}
	return items, nil
}

// probeLive checks the channel's /live endpoint. A redirect to a watch URL
// or an isLiveNow marker in the page body both count as a live broadcast.
func probeLive(ctx context.Context, client *http.Client, channelID string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(liveURLFormat, channelID), nil)
	if err != nil {
		return false, "", fmt.Errorf("build live probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("probe live endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if id := watchIDFromURL(location); id != "" {
			return true, watchURLBase + id, nil
		}
		return false, "", nil
	}

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("probe live endpoint: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false, "", fmt.Errorf("read live page: %w", err)
	}
	if !liveNowPattern.Match(body) {
		return false, "", nil
	}
	if m := watchLinkPattern.FindSubmatch(body); m != nil {
		return true, watchURLBase + string(m[1]), nil
	}
	return false, "", nil
}

func watchIDFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(u.Path, "/watch") {
		return ""
	}
	return u.Query().Get("v")
}

// noRedirectClient returns an HTTP client that surfaces redirects to the
// caller instead of following them, so the live probe can inspect them.
func noRedirectClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
