package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	platformerrors "storyvoice-server-go/internal/platform/errors"
)

// RunRepository stores and queries generation run records.
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *GenerationRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "run.create", "failed to save run", err)
	}
	return nil
}

// SetStatus moves a run to the given status; terminal statuses also stamp
// the finish time.
func (r *RunRepository) SetStatus(ctx context.Context, runID, status, errMsg string) error {
	updates := map[string]any{"status": status, "error": errMsg}
	if status == RunStatusComplete || status == RunStatusFailed {
		now := time.Now()
		updates["finished_at"] = &now
	}
	result := r.db.WithContext(ctx).Model(&GenerationRun{}).
		Where("run_id = ?", runID).Updates(updates)
	if result.Error != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "run.set_status", "failed to update run", result.Error)
	}
	if result.RowsAffected == 0 {
		return platformerrors.New(platformerrors.KindStorage, "run.set_status", "run not found")
	}
	return nil
}

func (r *RunRepository) SetUnitCount(ctx context.Context, runID string, count int) error {
	if err := r.db.WithContext(ctx).Model(&GenerationRun{}).
		Where("run_id = ?", runID).Update("unit_count", count).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "run.set_unit_count", "failed to update unit count", err)
	}
	return nil
}

func (r *RunRepository) SetCast(ctx context.Context, runID string, cast []byte) error {
	if err := r.db.WithContext(ctx).Model(&GenerationRun{}).
		Where("run_id = ?", runID).Update("cast", cast).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "run.set_cast", "failed to update cast", err)
	}
	return nil
}

// FindByRunID returns nil without error when no record exists.
func (r *RunRepository) FindByRunID(ctx context.Context, runID string) (*GenerationRun, error) {
	var run GenerationRun
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "run.find", "failed to find run", err)
	}
	return &run, nil
}

func (r *RunRepository) List(ctx context.Context, limit int) ([]GenerationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []GenerationRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "run.list", "failed to list runs", err)
	}
	return runs, nil
}
