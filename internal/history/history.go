/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history records playback events. Appends never fail the
// caller; losing a history line is not worth interrupting playback.
package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_player/internal/models"
)

// Recorder appends and reads playback history.
type Recorder struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRecorder creates the history recorder.
func NewRecorder(db *gorm.DB, logger zerolog.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Append records one playback event. I/O errors are logged and swallowed.
func (r *Recorder) Append(sourceLabel, itemTitle string, event models.HistoryEvent, detail string) {
	entry := models.HistoryEntry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		SourceLabel: sourceLabel,
		ItemTitle:   itemTitle,
		Event:       event,
		Detail:      detail,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.logger.Warn().Err(err).Str("event", string(event)).Msg("history append failed")
	}
}

// Recent returns the newest entries, most recent first.
func (r *Recorder) Recent(limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.HistoryEntry
	err := r.db.Order("timestamp DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
