package storage

import (
	"context"

	"gorm.io/gorm"

	platformerrors "storyvoice-server-go/internal/platform/errors"
)

// AudiobookRepository stores pointers to encoded audiobook artifacts.
type AudiobookRepository struct {
	db *gorm.DB
}

func NewAudiobookRepository(db *gorm.DB) *AudiobookRepository {
	return &AudiobookRepository{db: db}
}

func (r *AudiobookRepository) Create(ctx context.Context, record *AudiobookRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "audiobook.create", "failed to save record", err)
	}
	return nil
}

func (r *AudiobookRepository) ListByRunID(ctx context.Context, runID string) ([]AudiobookRecord, error) {
	var records []AudiobookRecord
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Find(&records).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "audiobook.list", "failed to list records", err)
	}
	return records, nil
}
