package psql

import (
	"context"

	"gorm.io/gorm"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
)

type GormPredictionRepo struct {
	DB *gorm.DB
}

func NewGormPredictionRepo(db *gorm.DB) *GormPredictionRepo {
	return &GormPredictionRepo{DB: db}
}

func (r *GormPredictionRepo) SaveRecords(ctx context.Context, recs []entity.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(recs, 100).Error
}

func (r *GormPredictionRepo) RecentByBearing(ctx context.Context, bearingID string, limit int) ([]entity.PredictionRecord, error) {
	var recs []entity.PredictionRecord
	err := r.DB.WithContext(ctx).
		Where("bearing_id = ?", bearingID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
