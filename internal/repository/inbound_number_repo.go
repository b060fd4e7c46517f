package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"gorm.io/gorm"
)

var _ InboundNumberRepository = (*GormInboundNumberRepo)(nil)

type GormInboundNumberRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormInboundNumberRepo(db *gorm.DB) *GormInboundNumberRepo {
	return &GormInboundNumberRepo{db: db, now: time.Now}
}

func (r *GormInboundNumberRepo) GetByID(ctx context.Context, id string) (*domain.InboundNumber, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}

	var model InboundNumberModel
	err := conn(ctx, r.db).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inboundNumberModelToDomain(&model), nil
}

func (r *GormInboundNumberRepo) ClaimForService(ctx context.Context, numberID, serviceID string) (int64, error) {
	if !isUUID(numberID) || !isUUID(serviceID) {
		return 0, nil
	}

	// Single conditional write: concurrent claimers race on the row lock and
	// every loser re-evaluates service_id IS NULL after the winner commits.
	result := conn(ctx, r.db).
		Model(&InboundNumberModel{}).
		Where("id = ? AND active = ? AND service_id IS NULL", numberID, true).
		Updates(map[string]any{
			"service_id": serviceID,
			"updated_at": r.now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
