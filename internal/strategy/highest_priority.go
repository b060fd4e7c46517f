package strategy

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"go.uber.org/zap"
)

var _ Strategy = (*HighestPriority)(nil)

// HighestPriority picks the active provider with the lowest priority number.
// Ties go to the lowest provider id.
type HighestPriority struct {
	providers repository.ProviderRepository
	logger    *zap.Logger
}

func NewHighestPriority(providers repository.ProviderRepository, logger *zap.Logger) *HighestPriority {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HighestPriority{providers: providers, logger: logger}
}

func (s *HighestPriority) Label() Label { return LabelHighestPriority }

func (s *HighestPriority) Validate(ctx context.Context, notificationType domain.NotificationType) error {
	providers, err := s.providers.ListActive(ctx, notificationType, false)
	if err != nil {
		return fmt.Errorf("failed to list %s providers: %w", notificationType, err)
	}
	if len(providers) == 0 {
		return fmt.Errorf("%w: %s found no active %s provider", domain.ErrConfiguration, s.Label(), notificationType)
	}
	return nil
}

func (s *HighestPriority) GetProvider(ctx context.Context, req domain.RoutingRequest) (*domain.Provider, error) {
	providers, err := s.providers.ListActive(ctx, req.NotificationType, req.International)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s providers: %w", req.NotificationType, err)
	}

	var best *domain.Provider
	for i := range providers {
		p := &providers[i]
		if !p.Active {
			continue
		}
		if best == nil || p.Priority < best.Priority || (p.Priority == best.Priority && p.ID < best.ID) {
			best = p
		}
	}

	if best == nil {
		s.logger.Debug("no provider matched",
			zap.String("strategy", s.Label().String()),
			zap.String("notificationType", req.NotificationType.String()),
			zap.Bool("international", req.International),
		)
	}
	return best, nil
}
