/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the always-on connect client's local control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a control API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CurrentTrack is the remote player's current playback state.
type CurrentTrack struct {
	URI    string `json:"uri"`
	Title  string `json:"name"`
	Artist string `json:"artist"`
}

// Load instructs the remote player to load a context URI and start playing.
func (c *Client) Load(ctx context.Context, contextURI string) error {
	params := url.Values{}
	params.Set("uri", contextURI)
	params.Set("play", "true")
	return c.post(ctx, "/player/load?"+params.Encode())
}

// Pause pauses remote playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.post(ctx, "/player/pause")
}

// Resume resumes remote playback.
func (c *Client) Resume(ctx context.Context) error {
	return c.post(ctx, "/player/resume")
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	return c.post(ctx, "/player/next")
}

// Previous skips to the previous track. The remote player decides whether
// this restarts the current track or moves back.
func (c *Client) Previous(ctx context.Context) error {
	return c.post(ctx, "/player/prev")
}

// Current returns the remote player's current track, or nil when nothing
// is loaded.
func (c *Client) Current(ctx context.Context) (*CurrentTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/player/current", nil)
	if err != nil {
		return nil, fmt.Errorf("build current request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query current track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query current track: unexpected status %d", resp.StatusCode)
	}

	var track CurrentTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("decode current track: %w", err)
	}
	if track.URI == "" {
		return nil, nil
	}
	return &track, nil
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build control request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("control request %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("control request %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
