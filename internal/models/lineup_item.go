package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LineupItemType discriminates the three shapes a LineupItem can take.
type LineupItemType string

const (
	LineupItemContent  LineupItemType = "content"
	LineupItemRedirect LineupItemType = "redirect"
	LineupItemOffline  LineupItemType = "offline"
)

// LineupItem is one entry of a channel's ordered, looping schedule. The
// fields that apply depend on Type: ProgramID is set only for content,
// TargetChannelID only for redirect; offline uses neither.
type LineupItem struct {
	BaseModel

	ChannelID uuid.UUID      `gorm:"type:uuid;not null;index" json:"channel_id"`
	Position  int            `gorm:"not null;index" json:"position"`
	Type      LineupItemType `gorm:"size:20;not null" json:"type"`

	DurationMs int64 `gorm:"not null" json:"duration_ms"`

	ProgramID       *uuid.UUID `gorm:"type:uuid" json:"program_id,omitempty"`
	TargetChannelID *uuid.UUID `gorm:"type:uuid" json:"target_channel_id,omitempty"`
}

// TableName returns the table name for LineupItem.
func (LineupItem) TableName() string {
	return "lineup_items"
}

// Validate performs basic validation on the lineup item.
func (i *LineupItem) Validate() error {
	if i.DurationMs <= 0 {
		return ErrLineupItemDurationRequired
	}
	switch i.Type {
	case LineupItemContent:
		if i.ProgramID == nil || *i.ProgramID == uuid.Nil {
			return ErrLineupItemContentRefRequired
		}
	case LineupItemRedirect:
		if i.TargetChannelID == nil || *i.TargetChannelID == uuid.Nil {
			return ErrLineupItemRedirectRefRequired
		}
	case LineupItemOffline:
		// Neither reference is required.
	default:
		return ErrLineupItemInvalidType
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the item and generates its UUID.
func (i *LineupItem) BeforeCreate(tx *gorm.DB) error {
	if err := i.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return i.Validate()
}

// BeforeUpdate is a GORM hook that validates the item before update.
func (i *LineupItem) BeforeUpdate(_ *gorm.DB) error {
	return i.Validate()
}

// Lineup is the ordered sequence of a channel's LineupItems, the shape
// LineupResolver walks. Store hands this back from loadLineup/
// loadChannelAndLineup already sorted by Position.
type Lineup struct {
	ChannelID uuid.UUID    `json:"channel_id"`
	Items     []LineupItem `json:"items"`
}

// TotalDurationMs sums every item's duration, the invariant that must
// equal the owning channel's DurationMs within SLACK.
func (l Lineup) TotalDurationMs() int64 {
	var total int64
	for _, item := range l.Items {
		total += item.DurationMs
	}
	return total
}
