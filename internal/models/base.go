// Package models defines the data model for the channel streaming core:
// Channel, Program, LineupItem, Watermark, FillerShow/FillerCollection,
// and the runtime-only StreamLineupItem/PlaybackRecord types.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BoolPtr returns a pointer to a bool value.
// Useful for setting *bool fields in structs.
func BoolPtr(b bool) *bool {
	return &b
}

// BoolVal returns the value of a bool pointer, defaulting to true if nil.
func BoolVal(b *bool) bool {
	return b == nil || *b
}

// BoolValDefault returns the value of a bool pointer with a custom default.
func BoolValDefault(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// BaseModel provides common fields for models keyed by a UUID primary key.
// Channel and Program are both identified by a UUID; runtime-only types
// (StreamLineupItem, PlaybackRecord) don't embed this at all.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"primarykey;type:uuid" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate generates a UUID if not already set.
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// GetID returns the model's identifier.
func (b *BaseModel) GetID() uuid.UUID {
	return b.ID
}

// Time is an alias for time.Time used in models.
type Time = time.Time

// Now returns the current time.
func Now() Time {
	return time.Now()
}

// EpochMillis returns t as milliseconds since the Unix epoch, the time
// unit used throughout the data model (channel.startTime, durations,
// lineup offsets).
func EpochMillis(t Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis converts milliseconds since the Unix epoch to a Time.
func FromEpochMillis(ms int64) Time {
	return time.UnixMilli(ms)
}
