package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-router/internal/domain"
	"gorm.io/gorm"
)

var _ SenderRepository = (*GormSenderRepo)(nil)

type GormSenderRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormSenderRepo(db *gorm.DB) *GormSenderRepo {
	return &GormSenderRepo{db: db, now: time.Now}
}

func (r *GormSenderRepo) GetByID(ctx context.Context, serviceID, senderID string) (*domain.ServiceSmsSender, error) {
	if !isUUID(serviceID) || !isUUID(senderID) {
		return nil, domain.ErrNotFound
	}

	var model ServiceSmsSenderModel
	err := conn(ctx, r.db).
		Where("id = ? AND service_id = ? AND archived = ?", senderID, serviceID, false).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return senderModelToDomain(&model), nil
}

func (r *GormSenderRepo) ListByService(ctx context.Context, serviceID string) ([]domain.ServiceSmsSender, error) {
	if !isUUID(serviceID) {
		return []domain.ServiceSmsSender{}, nil
	}

	var models []ServiceSmsSenderModel
	err := conn(ctx, r.db).
		Where("service_id = ? AND archived = ?", serviceID, false).
		Order("is_default DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	senders := make([]domain.ServiceSmsSender, 0, len(models))
	for i := range models {
		senders = append(senders, *senderModelToDomain(&models[i]))
	}

	return senders, nil
}

func (r *GormSenderRepo) GetDefaultByService(ctx context.Context, serviceID string) (*domain.ServiceSmsSender, error) {
	if !isUUID(serviceID) {
		return nil, domain.ErrNotFound
	}

	var model ServiceSmsSenderModel
	err := conn(ctx, r.db).
		Where("service_id = ? AND is_default = ? AND archived = ?", serviceID, true, false).
		Order("created_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return senderModelToDomain(&model), nil
}

func (r *GormSenderRepo) GetByServiceAndNumber(ctx context.Context, serviceID, number string) (*domain.ServiceSmsSender, error) {
	if !isUUID(serviceID) {
		return nil, domain.ErrNotFound
	}

	var model ServiceSmsSenderModel
	err := conn(ctx, r.db).
		Where("service_id = ? AND sms_sender = ? AND archived = ?", serviceID, number, false).
		Order("created_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return senderModelToDomain(&model), nil
}

func (r *GormSenderRepo) Insert(ctx context.Context, sender *domain.ServiceSmsSender) error {
	model := senderModelFromDomain(sender)
	if model == nil {
		return errors.New("sender is required")
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = r.now().UTC()
	}

	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return translateWriteError(err)
	}
	*sender = *senderModelToDomain(model)
	return nil
}

func (r *GormSenderRepo) UpdateFields(ctx context.Context, senderID string, update domain.SenderUpdate) error {
	if !isUUID(senderID) {
		return domain.ErrNotFound
	}

	columns, err := senderUpdateColumns(update, r.now().UTC())
	if err != nil {
		return err
	}

	result := conn(ctx, r.db).
		Model(&ServiceSmsSenderModel{}).
		Where("id = ?", senderID).
		Updates(columns)
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// translateWriteError surfaces unique index violations (one default per service,
// one sender per inbound number) as domain.ErrConflict.
func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
