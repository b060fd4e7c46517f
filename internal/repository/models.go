package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-router/internal/domain"
)

// ProviderDetailsModel is the persistence model for the provider_details table.
type ProviderDetailsModel struct {
	ID                    string                  `gorm:"type:uuid;primaryKey"`
	DisplayName           string                  `gorm:"type:varchar(255);not null"`
	Identifier            string                  `gorm:"type:varchar(255);not null"`
	Priority              int                     `gorm:"not null"`
	LoadBalancingWeight   *int                    `gorm:"type:int"`
	NotificationType      domain.NotificationType `gorm:"type:varchar(10);not null"`
	Active                bool                    `gorm:"not null"`
	SupportsInternational bool                    `gorm:"not null"`
	UpdatedAt             time.Time
}

func (ProviderDetailsModel) TableName() string {
	return "provider_details"
}

// ServiceSmsSenderModel is the persistence model for service_sms_senders.
type ServiceSmsSenderModel struct {
	ID                 string         `gorm:"type:uuid;primaryKey"`
	ServiceID          string         `gorm:"type:uuid;not null;index"`
	SMSSender          string         `gorm:"column:sms_sender;type:varchar(256);not null"`
	IsDefault          bool           `gorm:"not null"`
	Archived           bool           `gorm:"not null"`
	InboundNumberID    *string        `gorm:"type:uuid;uniqueIndex"`
	ProviderID         *string        `gorm:"type:uuid"`
	RateLimit          *int           `gorm:"type:int"`
	RateLimitInterval  *int           `gorm:"type:int"`
	SMSSenderSpecifics map[string]any `gorm:"column:sms_sender_specifics;serializer:json;type:jsonb"`
	Description        *string        `gorm:"type:varchar(256)"`
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

func (ServiceSmsSenderModel) TableName() string {
	return "service_sms_senders"
}

// InboundNumberModel is the persistence model for inbound_numbers.
type InboundNumberModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	Number    string  `gorm:"type:varchar(12);not null;uniqueIndex"`
	Provider  string  `gorm:"type:varchar(255);not null"`
	ServiceID *string `gorm:"type:uuid;index"`
	Active    bool    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (InboundNumberModel) TableName() string {
	return "inbound_numbers"
}

func providerModelToDomain(m *ProviderDetailsModel) *domain.Provider {
	if m == nil {
		return nil
	}

	return &domain.Provider{
		ID:                    m.ID,
		DisplayName:           m.DisplayName,
		Identifier:            m.Identifier,
		Priority:              m.Priority,
		LoadBalancingWeight:   m.LoadBalancingWeight,
		NotificationType:      m.NotificationType,
		Active:                m.Active,
		SupportsInternational: m.SupportsInternational,
		UpdatedAt:             m.UpdatedAt,
	}
}

func senderModelFromDomain(s *domain.ServiceSmsSender) *ServiceSmsSenderModel {
	if s == nil {
		return nil
	}

	return &ServiceSmsSenderModel{
		ID:                 s.ID,
		ServiceID:          s.ServiceID,
		SMSSender:          s.SMSSender,
		IsDefault:          s.IsDefault,
		Archived:           s.Archived,
		InboundNumberID:    s.InboundNumberID,
		ProviderID:         s.ProviderID,
		RateLimit:          s.RateLimit,
		RateLimitInterval:  s.RateLimitInterval,
		SMSSenderSpecifics: s.SMSSenderSpecifics,
		Description:        s.Description,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func senderModelToDomain(m *ServiceSmsSenderModel) *domain.ServiceSmsSender {
	if m == nil {
		return nil
	}

	return &domain.ServiceSmsSender{
		ID:                 m.ID,
		ServiceID:          m.ServiceID,
		SMSSender:          m.SMSSender,
		IsDefault:          m.IsDefault,
		Archived:           m.Archived,
		InboundNumberID:    m.InboundNumberID,
		ProviderID:         m.ProviderID,
		RateLimit:          m.RateLimit,
		RateLimitInterval:  m.RateLimitInterval,
		SMSSenderSpecifics: m.SMSSenderSpecifics,
		Description:        m.Description,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func inboundNumberModelToDomain(m *InboundNumberModel) *domain.InboundNumber {
	if m == nil {
		return nil
	}

	return &domain.InboundNumber{
		ID:        m.ID,
		Number:    m.Number,
		Provider:  m.Provider,
		ServiceID: m.ServiceID,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// senderUpdateColumns maps the supplied fields of an update onto column names.
// Map updates bypass gorm serializers, so specifics are encoded here.
func senderUpdateColumns(update domain.SenderUpdate, now time.Time) (map[string]any, error) {
	columns := map[string]any{"updated_at": now}

	if v, ok := update.SMSSender.Get(); ok {
		columns["sms_sender"] = v
	}
	if v, ok := update.IsDefault.Get(); ok {
		columns["is_default"] = v
	}
	if v, ok := update.InboundNumberID.Get(); ok {
		columns["inbound_number_id"] = v
	}
	if v, ok := update.ProviderID.Get(); ok {
		columns["provider_id"] = v
	}
	if v, ok := update.RateLimit.Get(); ok {
		columns["rate_limit"] = v
	}
	if v, ok := update.RateLimitInterval.Get(); ok {
		columns["rate_limit_interval"] = v
	}
	if v, ok := update.SMSSenderSpecifics.Get(); ok {
		if v == nil {
			columns["sms_sender_specifics"] = nil
		} else {
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to encode sms sender specifics: %w", err)
			}
			columns["sms_sender_specifics"] = string(encoded)
		}
	}
	if v, ok := update.Description.Get(); ok {
		columns["description"] = v
	}

	return columns, nil
}

// isUUID guards uuid columns so malformed ids read as missing rows instead of driver errors.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
