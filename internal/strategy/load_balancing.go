package strategy

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"go.uber.org/zap"
)

var _ Strategy = (*LoadBalancing)(nil)

// LoadBalancing draws one provider at random, weighted by load_balancing_weight.
// Providers without a positive weight are never drawn.
type LoadBalancing struct {
	providers repository.ProviderRepository
	logger    *zap.Logger
	randIntn  func(n int) int
}

// NewLoadBalancing uses randIntn as the random source; it must return a value in [0, n).
// A nil randIntn falls back to math/rand/v2.
func NewLoadBalancing(providers repository.ProviderRepository, logger *zap.Logger, randIntn func(n int) int) *LoadBalancing {
	if logger == nil {
		logger = zap.NewNop()
	}
	if randIntn == nil {
		randIntn = rand.IntN
	}
	return &LoadBalancing{providers: providers, logger: logger, randIntn: randIntn}
}

func (s *LoadBalancing) Label() Label { return LabelLoadBalancing }

func (s *LoadBalancing) Validate(ctx context.Context, notificationType domain.NotificationType) error {
	providers, err := s.providers.ListActive(ctx, notificationType, false)
	if err != nil {
		return fmt.Errorf("failed to list %s providers: %w", notificationType, err)
	}
	if totalWeight(providers) == 0 {
		return fmt.Errorf("%w: %s found no active %s provider with a positive weight", domain.ErrConfiguration, s.Label(), notificationType)
	}
	return nil
}

func (s *LoadBalancing) GetProvider(ctx context.Context, req domain.RoutingRequest) (*domain.Provider, error) {
	providers, err := s.providers.ListActive(ctx, req.NotificationType, req.International)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s providers: %w", req.NotificationType, err)
	}

	total := totalWeight(providers)
	if total == 0 {
		s.logger.Debug("no weighted provider matched",
			zap.String("strategy", s.Label().String()),
			zap.String("notificationType", req.NotificationType.String()),
			zap.Bool("international", req.International),
		)
		return nil, nil
	}

	draw := s.randIntn(total)
	for i := range providers {
		if !providers[i].Active {
			continue
		}
		weight := providers[i].Weight()
		if draw < weight {
			return &providers[i], nil
		}
		draw -= weight
	}

	// Unreachable while randIntn honours [0, total).
	return nil, fmt.Errorf("random draw out of range for total weight %d", total)
}

func totalWeight(providers []domain.Provider) int {
	total := 0
	for _, p := range providers {
		if p.Active {
			total += p.Weight()
		}
	}
	return total
}
