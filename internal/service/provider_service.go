package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/observability"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"github.com/kursadbilgin/notify-router/internal/strategy"
	"go.uber.org/zap"
)

// Decision sources reported on resolution metrics.
const (
	sourceTemplate = "template"
	sourceService  = "service"
	sourceStrategy = "strategy"
	sourceNone     = "none"
)

// strategyTypes are the notification types that can carry a selection strategy.
var strategyTypes = []domain.NotificationType{domain.NotificationTypeEmail, domain.NotificationTypeSMS}

// ProviderService resolves the delivery provider for a notification.
// A template override beats a service override, which beats the strategy
// configured for the notification type. SMS is never routed by strategy.
type ProviderService struct {
	providers  repository.ProviderRepository
	strategies map[domain.NotificationType]strategy.Strategy
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func NewProviderService(
	providers repository.ProviderRepository,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*ProviderService, error) {
	if providers == nil {
		return nil, fmt.Errorf("provider repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProviderService{
		providers:  providers,
		strategies: map[domain.NotificationType]strategy.Strategy{},
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// InitApp resolves the configured strategy labels. An empty label leaves the
// type without a strategy. Unknown labels fail with domain.ErrConfiguration.
func (s *ProviderService) InitApp(emailLabel, smsLabel strategy.Label) error {
	labels := map[domain.NotificationType]strategy.Label{
		domain.NotificationTypeEmail: emailLabel,
		domain.NotificationTypeSMS:   smsLabel,
	}

	strategies := make(map[domain.NotificationType]strategy.Strategy, len(labels))
	for _, notificationType := range strategyTypes {
		label := strategy.Label(strings.TrimSpace(labels[notificationType].String()))
		if label == "" {
			continue
		}

		resolved, err := strategy.Resolve(label, s.providers, s.logger)
		if err != nil {
			return fmt.Errorf("%s provider strategy: %w", notificationType, err)
		}
		strategies[notificationType] = resolved
	}

	s.strategies = strategies
	return nil
}

// Strategy returns the strategy configured for a notification type.
func (s *ProviderService) Strategy(notificationType domain.NotificationType) (strategy.Strategy, bool) {
	st, ok := s.strategies[notificationType]
	return st, ok
}

// ValidateStrategies checks every configured strategy against the current
// provider table. Call it once after InitApp; a failure should stop startup.
func (s *ProviderService) ValidateStrategies(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for _, notificationType := range strategyTypes {
		st, ok := s.strategies[notificationType]
		if !ok {
			continue
		}
		if err := st.Validate(ctx, notificationType); err != nil {
			s.logger.Error("provider strategy validation failed",
				zap.String("notificationType", notificationType.String()),
				zap.String("strategy", st.Label().String()),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

func (s *ProviderService) GetProvider(ctx context.Context, req domain.RoutingRequest) (*domain.Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("notificationId", req.NotificationID),
		zap.String("notificationType", req.NotificationType.String()),
	)

	if providerID, source := overrideProviderID(req); providerID != "" {
		provider, err := s.lookupOverride(ctx, providerID)
		if err != nil {
			s.metrics.IncProviderResolution(req.NotificationType.String(), source, "failed")
			logger.Warn("provider override rejected", zap.String("providerId", providerID), zap.String("source", source), zap.Error(err))
			return nil, err
		}
		s.metrics.IncProviderResolution(req.NotificationType.String(), source, "resolved")
		logger.Debug("provider resolved from override", zap.String("providerId", provider.ID), zap.String("source", source))
		return provider, nil
	}

	if req.NotificationType == domain.NotificationTypeSMS {
		s.metrics.IncProviderResolution(req.NotificationType.String(), sourceNone, "failed")
		return nil, fmt.Errorf("%w: sms notification %s has no template or service provider", domain.ErrInvalidProvider, req.NotificationID)
	}

	st, ok := s.strategies[req.NotificationType]
	if !ok {
		s.metrics.IncProviderResolution(req.NotificationType.String(), sourceNone, "failed")
		return nil, fmt.Errorf("%w: no provider selection strategy configured for %s", domain.ErrInvalidProvider, req.NotificationType)
	}

	provider, err := st.GetProvider(ctx, req)
	if err != nil {
		s.metrics.IncProviderResolution(req.NotificationType.String(), sourceStrategy, "failed")
		return nil, fmt.Errorf("%s: %w", st.Label(), err)
	}
	if provider == nil {
		s.metrics.IncProviderResolution(req.NotificationType.String(), sourceStrategy, "failed")
		return nil, fmt.Errorf("%s: %w: no suitable %s provider for notification %s",
			st.Label(), domain.ErrInvalidProvider, req.NotificationType, req.NotificationID)
	}

	s.metrics.IncProviderResolution(req.NotificationType.String(), sourceStrategy, "resolved")
	logger.Debug("provider resolved by strategy", zap.String("providerId", provider.ID), zap.String("strategy", st.Label().String()))
	return provider, nil
}

func (s *ProviderService) lookupOverride(ctx context.Context, providerID string) (*domain.Provider, error) {
	provider, err := s.providers.GetByID(ctx, providerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: provider %s does not exist", domain.ErrInvalidProvider, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load provider %s: %w", providerID, err)
	}
	if !provider.Active {
		return nil, fmt.Errorf("%w: provider %s is inactive", domain.ErrInvalidProvider, providerID)
	}
	return provider, nil
}

// overrideProviderID returns the template override, else the service override
// for the notification type. Blank ids count as absent.
func overrideProviderID(req domain.RoutingRequest) (string, string) {
	if id := trimmed(req.Template.ProviderID); id != "" {
		return id, sourceTemplate
	}
	if id := trimmed(req.Service.ProviderIDFor(req.NotificationType)); id != "" {
		return id, sourceService
	}
	return "", sourceNone
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
