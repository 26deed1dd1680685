package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FillerClip is one clip owned by a FillerShow. It is Program-shaped
// but deliberately not a Program itself: filler clips are never
// scheduled as content lineup items and don't need the
// (SourceType, ExternalSourceID, ExternalKey) uniqueness key that
// disambiguates Programs pulled from multiple upstream sources.
type FillerClip struct {
	ID         uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	DurationMs int64     `gorm:"not null" json:"duration_ms"`
	Title      string    `gorm:"size:512" json:"title,omitempty"`
	FilePath   string    `gorm:"size:4096" json:"file_path,omitempty"`
}

// FillerShow owns an ordered set of filler clips. A channel references
// a FillerShow indirectly through a FillerCollectionRef (on Channel),
// which carries the weight and cooldown that are properties of the
// channel's use of the show, not of the show itself.
type FillerShow struct {
	BaseModel

	Name  string       `gorm:"not null;size:512" json:"name"`
	Clips []FillerClip `gorm:"serializer:json" json:"clips"`
}

// TableName returns the table name for FillerShow.
func (FillerShow) TableName() string {
	return "filler_shows"
}

// Validate performs basic validation on the filler show.
func (f *FillerShow) Validate() error {
	if f.Name == "" {
		return ErrFillerShowNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the show and generates its UUID.
func (f *FillerShow) BeforeCreate(tx *gorm.DB) error {
	if err := f.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return f.Validate()
}

// BeforeUpdate is a GORM hook that validates the show before update.
func (f *FillerShow) BeforeUpdate(_ *gorm.DB) error {
	return f.Validate()
}
