package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/observability"
	"github.com/kursadbilgin/notify-router/internal/ratelimit"
	"go.uber.org/zap"
)

// SenderLookup finds a service's sender. Both the repository and SenderReader satisfy it.
type SenderLookup interface {
	GetByID(ctx context.Context, serviceID, senderID string) (*domain.ServiceSmsSender, error)
}

// SenderThrottle enforces a sender's rate_limit per rate_limit_interval seconds.
// The window is keyed by the sms_sender value, so senders sharing a number share a budget.
type SenderThrottle struct {
	enabled bool
	senders SenderLookup
	limiter ratelimit.WindowLimiter
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewSenderThrottle(
	enabled bool,
	senders SenderLookup,
	limiter ratelimit.WindowLimiter,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*SenderThrottle, error) {
	if enabled && (senders == nil || limiter == nil) {
		return nil, fmt.Errorf("sender lookup and rate limiter are required when throttling is enabled")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SenderThrottle{
		enabled: enabled,
		senders: senders,
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Check counts one send for the sender. It returns a *domain.RateLimitError once
// the sender's window is exhausted. Unknown and unlimited senders always pass.
func (t *SenderThrottle) Check(ctx context.Context, serviceID, senderID string) error {
	if t == nil || !t.enabled {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sender, err := t.senders.GetByID(ctx, serviceID, senderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load sms sender %s: %w", senderID, err)
	}
	if !sender.HasRateLimit() {
		return nil
	}

	limit, interval := *sender.RateLimit, *sender.RateLimitInterval
	allowed, err := t.limiter.Allow(ctx, sender.SMSSender, limit, time.Duration(interval)*time.Second)
	if err != nil {
		return fmt.Errorf("failed to check rate limit for sms sender %s: %w", senderID, err)
	}
	if !allowed {
		t.metrics.IncSenderThrottle("limited")
		rateErr := domain.NewRateLimitError(sender.ID, limit, interval)
		observability.WithContextLogger(t.logger, ctx).Info("sms sender rate limited",
			zap.String("serviceId", serviceID),
			zap.String("senderId", senderID),
			zap.Duration("retryAfter", rateErr.RetryAfter),
		)
		return rateErr
	}

	t.metrics.IncSenderThrottle("allowed")
	return nil
}
