package models

import "gorm.io/gorm"

// ProgramType distinguishes the three content shapes a Program can be.
type ProgramType string

const (
	ProgramTypeMovie   ProgramType = "movie"
	ProgramTypeEpisode ProgramType = "episode"
	ProgramTypeTrack   ProgramType = "track"
)

// SourceType identifies which upstream system a Program's
// (SourceType, ExternalSourceID, ExternalKey) key was minted from. The
// triple is how MediaResolver (out of scope) and Store correlate a
// Program back to its origin; the core only treats it as an opaque
// uniqueness key.
type SourceType string

// Program is a content item uniquely keyed by
// (SourceType, ExternalSourceID, ExternalKey). It is the referent of a
// content-typed LineupItem and of every clip inside a FillerShow.
type Program struct {
	BaseModel

	SourceType       SourceType `gorm:"size:50;not null;uniqueIndex:idx_program_key" json:"source_type"`
	ExternalSourceID string     `gorm:"size:255;not null;uniqueIndex:idx_program_key" json:"external_source_id"`
	ExternalKey      string     `gorm:"size:255;not null;uniqueIndex:idx_program_key" json:"external_key"`

	Type       ProgramType `gorm:"size:20;not null" json:"type"`
	DurationMs int64       `gorm:"not null" json:"duration_ms"`

	Title   string `gorm:"size:512" json:"title,omitempty"`
	Season  int    `gorm:"default:0" json:"season,omitempty"`
	Episode int    `gorm:"default:0" json:"episode,omitempty"`
	Year    int    `gorm:"default:0" json:"year,omitempty"`
	Rating  string `gorm:"size:20" json:"rating,omitempty"`
	IconURL string `gorm:"size:2048" json:"icon_url,omitempty"`
	Summary string `gorm:"type:text" json:"summary,omitempty"`
	// FilePath or URL MediaResolver resolves this program's bytes from.
	FilePath string `gorm:"size:4096" json:"file_path,omitempty"`
}

// TableName returns the table name for Program.
func (Program) TableName() string {
	return "programs"
}

// Validate performs basic validation on the program.
func (p *Program) Validate() error {
	if p.ExternalKey == "" || p.ExternalSourceID == "" || p.SourceType == "" {
		return ErrProgramKeyRequired
	}
	if p.DurationMs <= 0 {
		return ErrProgramDurationRequired
	}
	switch p.Type {
	case ProgramTypeMovie, ProgramTypeEpisode, ProgramTypeTrack:
	default:
		return ErrProgramInvalidType
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the program and generates
// its UUID.
func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}

// BeforeUpdate is a GORM hook that validates the program before update.
func (p *Program) BeforeUpdate(_ *gorm.DB) error {
	return p.Validate()
}
