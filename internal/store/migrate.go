package store

import (
	"fmt"

	"github.com/lanestream/broadcastcore/internal/db"
	"github.com/lanestream/broadcastcore/internal/models"
)

// Migrate runs AutoMigrate for every model the reference Store persists.
func Migrate(conn *db.DB) error {
	if err := conn.AutoMigrate(
		&models.Channel{},
		&models.Program{},
		&models.LineupItem{},
		&models.FillerShow{},
		&models.EncodingProfile{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
