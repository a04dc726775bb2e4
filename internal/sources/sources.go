/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sources holds the configured playback sources and the selection cursor.
package sources

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Kind identifies the backend family a source belongs to.
type Kind string

const (
	KindPlaylistService Kind = "playlist_service"
	KindChannel         Kind = "channel"
	KindPlaylistVideo   Kind = "playlist_video"
)

// SourceSpec describes one configured playable origin. Immutable after load.
type SourceSpec struct {
	ID         string `yaml:"id"`
	Kind       Kind   `yaml:"kind"`
	Label      string `yaml:"label"`
	Identifier string `yaml:"identifier"`
	OrderIndex int    `yaml:"-"`
}

var (
	channelIDPattern         = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	videoPlaylistIDPattern   = regexp.MustCompile(`^PL[A-Za-z0-9_-]{16,32}$`)
	servicePlaylistIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
)

// LoadFile reads and validates the source list from a YAML file.
// An unreadable, malformed, or empty list is a fatal configuration error.
func LoadFile(path string) ([]SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var specs []SourceSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	if err := Validate(specs); err != nil {
		return nil, err
	}

	for i := range specs {
		specs[i].OrderIndex = i
	}
	return specs, nil
}

// Validate checks the source list invariants: non-empty, unique ids, and
// identifier formats matching each source kind.
func Validate(specs []SourceSpec) error {
	if len(specs) == 0 {
		return ErrEmptyRegistry
	}

	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		if spec.ID == "" {
			return fmt.Errorf("source %d: missing id", i)
		}
		if _, dup := seen[spec.ID]; dup {
			return fmt.Errorf("source %q: duplicate id", spec.ID)
		}
		seen[spec.ID] = struct{}{}

		if spec.Label == "" {
			return fmt.Errorf("source %q: missing label", spec.ID)
		}

		switch spec.Kind {
		case KindChannel:
			if !channelIDPattern.MatchString(spec.Identifier) {
				return fmt.Errorf("source %q: %q is not a channel id", spec.ID, spec.Identifier)
			}
		case KindPlaylistVideo:
			if !videoPlaylistIDPattern.MatchString(spec.Identifier) {
				return fmt.Errorf("source %q: %q is not a video playlist id", spec.ID, spec.Identifier)
			}
		case KindPlaylistService:
			if !servicePlaylistIDPattern.MatchString(spec.Identifier) {
				return fmt.Errorf("source %q: %q is not a service playlist id", spec.ID, spec.Identifier)
			}
		default:
			return fmt.Errorf("source %q: unknown kind %q", spec.ID, spec.Kind)
		}
	}
	return nil
}
