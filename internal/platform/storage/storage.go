// Package storage persists run and audiobook records in SQLite.
package storage

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	platformerrors "storyvoice-server-go/internal/platform/errors"
)

// Open creates the data directory, opens the SQLite database, and migrates
// the schema.
func Open(dir string) (*gorm.DB, error) {
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"failed to create data directory", err)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "storyvoice.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"failed to open database", err)
	}

	if err := db.AutoMigrate(&GenerationRun{}, &AudiobookRecord{}); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"failed to migrate schema", err)
	}
	return db, nil
}
