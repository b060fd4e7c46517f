package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/repository"
)

// ProviderValidator checks provider references stored on services and templates.
type ProviderValidator struct {
	providers repository.ProviderRepository
}

func NewProviderValidator(providers repository.ProviderRepository) (*ProviderValidator, error) {
	if providers == nil {
		return nil, fmt.Errorf("provider repository is required")
	}
	return &ProviderValidator{providers: providers}, nil
}

// ValidateServiceProviders accepts nil ids; set ids must name an active provider of the matching type.
func (v *ProviderValidator) ValidateServiceProviders(ctx context.Context, emailProviderID, smsProviderID *string) error {
	if err := v.validate(ctx, emailProviderID, domain.NotificationTypeEmail); err != nil {
		return err
	}
	return v.validate(ctx, smsProviderID, domain.NotificationTypeSMS)
}

func (v *ProviderValidator) ValidateTemplateProvider(
	ctx context.Context,
	providerID *string,
	templateType domain.NotificationType,
) error {
	return v.validate(ctx, providerID, templateType)
}

func (v *ProviderValidator) validate(ctx context.Context, providerID *string, notificationType domain.NotificationType) error {
	if providerID == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := v.providers.GetByID(ctx, *providerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to load provider %s: %w", *providerID, err)
	}
	if err != nil || !provider.Active || provider.NotificationType != notificationType {
		return fmt.Errorf("%w: invalid %s_provider_id", domain.ErrValidation, notificationType)
	}
	return nil
}
