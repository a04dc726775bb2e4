/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models defines the persisted records of the player daemon.
package models

import (
	"time"

	"gorm.io/gorm"
)

// HistoryEvent enumerates the playback events recorded in history.
type HistoryEvent string

const (
	HistoryStarted  HistoryEvent = "started"
	HistorySkipped  HistoryEvent = "skipped"
	HistoryFailed   HistoryEvent = "failed"
	HistorySwitched HistoryEvent = "switched"
)

// ResumeRecord is the single persisted marker used to resume playback on boot.
// Exactly one row exists; it is rewritten on every state-affecting transition.
type ResumeRecord struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	SourceIndex int       `gorm:"not null" json:"source_index"`
	ItemMarker  string    `json:"item_marker"`
	SavedAt     time.Time `gorm:"not null" json:"saved_at"`
}

// HistoryEntry is one append-only playback event row.
type HistoryEntry struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time    `gorm:"not null;index" json:"timestamp"`
	SourceLabel string       `gorm:"not null" json:"source_label"`
	ItemTitle   string       `json:"item_title"`
	Event       HistoryEvent `gorm:"not null" json:"event"`
	Detail      string       `json:"detail,omitempty"`
}

// Migrate creates or updates the schema for all persisted records.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ResumeRecord{},
		&HistoryEntry{},
	)
}
