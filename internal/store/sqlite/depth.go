package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"sigrank/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type depthRepository struct {
	db *gorm.DB
}

func (r *depthRepository) Upsert(ctx context.Context, account, symbol string, depth float64, at time.Time) error {
	account = strings.TrimSpace(account)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if account == "" || symbol == "" {
		return errors.New("account and symbol are required")
	}
	if at.IsZero() {
		at = time.Now()
	}
	rec := model.DepthModel{Account: account, Symbol: symbol, Depth: depth, ConfirmedAt: at.UnixMilli()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"depth", "confirmed_at"}),
	}).Create(&rec).Error
}

func (r *depthRepository) ListByAccount(ctx context.Context, account string) (map[string]float64, error) {
	var rows []model.DepthModel
	if err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Symbol] = row.Depth
	}
	return out, nil
}
