/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package state persists the resume record that seeds playback on boot.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_player/internal/models"
)

// resumeRowID pins the resume record to a single row.
const resumeRowID = "resume"

// Store reads and rewrites the single resume record.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates the state store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "state").Logger(),
	}
}

// Load returns the persisted resume record, or nil on first boot. A
// corrupt or unreadable row degrades to first-boot defaults rather than
// failing startup.
func (s *Store) Load() *models.ResumeRecord {
	var record models.ResumeRecord
	err := s.db.Where("id = ?", resumeRowID).First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Msg("resume record unreadable, using first-boot defaults")
		}
		return nil
	}
	if record.SourceIndex < 0 {
		s.logger.Warn().Int("source_index", record.SourceIndex).Msg("resume record invalid, using first-boot defaults")
		return nil
	}
	return &record
}

// Save rewrites the resume record for the given source and item marker.
func (s *Store) Save(sourceIndex int, itemMarker string) error {
	record := models.ResumeRecord{
		ID:          resumeRowID,
		SourceIndex: sourceIndex,
		ItemMarker:  itemMarker,
		SavedAt:     time.Now().UTC(),
	}
	if err := s.db.Save(&record).Error; err != nil {
		return fmt.Errorf("save resume record: %w", err)
	}
	return nil
}
