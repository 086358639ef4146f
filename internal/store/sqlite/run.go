package sqlite

import (
	"context"
	"errors"
	"time"

	"sigrank/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type runRepository struct {
	db *gorm.DB
}

func (r *runRepository) Save(ctx context.Context, run *model.RunModel) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.RunID == "" {
		return errors.New("run id cannot be empty")
	}
	if run.CreatedAtUnix == 0 {
		run.CreatedAtUnix = time.Now().UnixMilli()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(run).Error
}

func (r *runRepository) Latest(ctx context.Context) (*model.RunModel, error) {
	var run model.RunModel
	err := r.db.WithContext(ctx).Order("as_of DESC, id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) List(ctx context.Context, limit int) ([]model.RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.RunModel
	if err := r.db.WithContext(ctx).
		Order("as_of DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
