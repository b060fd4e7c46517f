package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"gorm.io/gorm"
)

var _ ProviderRepository = (*GormProviderRepo)(nil)

type GormProviderRepo struct {
	db *gorm.DB
}

func NewGormProviderRepo(db *gorm.DB) *GormProviderRepo {
	return &GormProviderRepo{db: db}
}

func (r *GormProviderRepo) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}

	var model ProviderDetailsModel
	err := conn(ctx, r.db).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return providerModelToDomain(&model), nil
}

func (r *GormProviderRepo) ListActive(
	ctx context.Context,
	notificationType domain.NotificationType,
	international bool,
) ([]domain.Provider, error) {
	query := conn(ctx, r.db).
		Where("notification_type = ? AND active = ?", notificationType, true)
	if international {
		query = query.Where("supports_international = ?", true)
	}

	var models []ProviderDetailsModel
	if err := query.Order("priority ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	providers := make([]domain.Provider, 0, len(models))
	for i := range models {
		providers = append(providers, *providerModelToDomain(&models[i]))
	}

	return providers, nil
}
