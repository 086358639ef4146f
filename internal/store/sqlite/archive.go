package sqlite

import (
	"context"
	"errors"
	"time"

	"sigrank/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type archiveRepository struct {
	db *gorm.DB
}

// Save inserts or replaces the index row for rec.Path.
func (r *archiveRepository) Save(ctx context.Context, rec *model.ArchiveModel) error {
	if rec == nil {
		return errors.New("archive record cannot be nil")
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = time.Now().UnixMilli()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// Latest returns the most recently fetched archive, nil when none exist.
func (r *archiveRepository) Latest(ctx context.Context) (*model.ArchiveModel, error) {
	var rec model.ArchiveModel
	err := r.db.WithContext(ctx).Order("fetched_at DESC, id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *archiveRepository) List(ctx context.Context, limit int) ([]model.ArchiveModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []model.ArchiveModel
	if err := r.db.WithContext(ctx).
		Order("fetched_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
