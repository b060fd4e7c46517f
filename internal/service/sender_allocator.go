package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/observability"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"go.uber.org/zap"
)

const (
	opAdd     = "add"
	opUpdate  = "update"
	opInitial = "initial"
)

// SenderAllocator creates and updates SMS senders while keeping exactly one
// default per service, paired rate limits, and exclusive inbound numbers.
// Every operation runs in one transaction; a caller transaction carried in ctx is joined.
type SenderAllocator struct {
	tx        repository.Transactor
	senders   repository.SenderRepository
	numbers   repository.InboundNumberRepository
	providers repository.ProviderRepository
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewSenderAllocator(
	tx repository.Transactor,
	senders repository.SenderRepository,
	numbers repository.InboundNumberRepository,
	providers repository.ProviderRepository,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*SenderAllocator, error) {
	if tx == nil || senders == nil || numbers == nil || providers == nil {
		return nil, fmt.Errorf("transactor and sender, inbound number and provider repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SenderAllocator{
		tx:        tx,
		senders:   senders,
		numbers:   numbers,
		providers: providers,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Add creates a sender. When params.IsDefault is set, the previous default is demoted.
func (a *SenderAllocator) Add(ctx context.Context, params domain.AddSenderParams) (*domain.ServiceSmsSender, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(a.logger, ctx).With(zap.String("serviceId", params.ServiceID))

	if err := params.Validate(); err != nil {
		a.recordMutation(opAdd, err)
		return nil, err
	}

	var created *domain.ServiceSmsSender
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := a.currentDefault(ctx, params.ServiceID)
		if err != nil {
			return err
		}
		if current == nil && !params.IsDefault {
			return fmt.Errorf("%w: service %s has no default sms sender, so the new sender must be default",
				domain.ErrDefaultSenderRequired, params.ServiceID)
		}
		if params.IsDefault && current != nil {
			if err := a.demote(ctx, current); err != nil {
				return err
			}
		}

		if err := validateRateLimit(nil, domain.Some(params.RateLimit), domain.Some(params.RateLimitInterval)); err != nil {
			return err
		}

		if params.InboundNumberID != nil {
			number, err := a.claim(ctx, *params.InboundNumberID, params.ServiceID)
			if err != nil {
				return err
			}
			if number.Number != params.SMSSender {
				return fmt.Errorf("%w: sender %q does not match inbound number %s (%q)",
					domain.ErrSenderNumberMismatch, params.SMSSender, number.ID, number.Number)
			}
		}

		if err := a.validateProvider(ctx, params.ProviderID); err != nil {
			return err
		}

		sender := &domain.ServiceSmsSender{
			ServiceID:          params.ServiceID,
			SMSSender:          params.SMSSender,
			IsDefault:          params.IsDefault,
			InboundNumberID:    params.InboundNumberID,
			ProviderID:         params.ProviderID,
			RateLimit:          params.RateLimit,
			RateLimitInterval:  params.RateLimitInterval,
			SMSSenderSpecifics: params.SMSSenderSpecifics,
			Description:        params.Description,
		}
		if err := a.senders.Insert(ctx, sender); err != nil {
			return fmt.Errorf("failed to insert sms sender: %w", err)
		}
		created = sender
		return nil
	})
	a.recordMutation(opAdd, err)
	if err != nil {
		return nil, err
	}

	logger.Info("sms sender added",
		zap.String("senderId", created.ID),
		zap.Bool("isDefault", created.IsDefault),
	)
	return created, nil
}

// Update applies the supplied fields of update to a sender owned by serviceID.
func (a *SenderAllocator) Update(
	ctx context.Context,
	serviceID, senderID string,
	update domain.SenderUpdate,
) (*domain.ServiceSmsSender, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(a.logger, ctx).With(
		zap.String("serviceId", serviceID),
		zap.String("senderId", senderID),
	)

	if err := update.Validate(); err != nil {
		a.recordMutation(opUpdate, err)
		return nil, err
	}

	var updated *domain.ServiceSmsSender
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := a.senders.GetByID(ctx, serviceID, senderID)
		if err != nil {
			return fmt.Errorf("sms sender %s of service %s: %w", senderID, serviceID, err)
		}

		if isDefault, ok := update.IsDefault.Get(); ok {
			if err := a.handleDefaultChange(ctx, serviceID, senderID, isDefault); err != nil {
				return err
			}
		}

		if numberID, ok := update.InboundNumberID.Get(); ok && numberID != nil && !sameID(existing.InboundNumberID, numberID) {
			if _, err := a.claim(ctx, *numberID, serviceID); err != nil {
				return err
			}
		}

		if err := validateRateLimit(existing, update.RateLimit, update.RateLimitInterval); err != nil {
			return err
		}

		if update.SMSSender.Set && existing.InboundNumberID != nil {
			return fmt.Errorf("%w: sender %s is bound to inbound number %s",
				domain.ErrSenderNumberImmutable, senderID, *existing.InboundNumberID)
		}

		if providerID, ok := update.ProviderID.Get(); ok {
			if err := a.validateProvider(ctx, providerID); err != nil {
				return err
			}
		}

		if update.IsEmpty() {
			updated = existing
			return nil
		}
		if err := a.senders.UpdateFields(ctx, senderID, update); err != nil {
			return fmt.Errorf("failed to update sms sender %s: %w", senderID, err)
		}

		updated, err = a.senders.GetByID(ctx, serviceID, senderID)
		if err != nil {
			return fmt.Errorf("failed to reload sms sender %s: %w", senderID, err)
		}
		return nil
	})
	a.recordMutation(opUpdate, err)
	if err != nil {
		return nil, err
	}

	logger.Info("sms sender updated", zap.Bool("isDefault", updated.IsDefault))
	return updated, nil
}

// InsertInitialSender gives a newly created service its first, default sender.
func (a *SenderAllocator) InsertInitialSender(ctx context.Context, serviceID, smsSender string) (*domain.ServiceSmsSender, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	params := domain.AddSenderParams{ServiceID: serviceID, SMSSender: smsSender, IsDefault: true}
	if err := params.Validate(); err != nil {
		a.recordMutation(opInitial, err)
		return nil, err
	}

	var created *domain.ServiceSmsSender
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := a.senders.ListByService(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("failed to list sms senders: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: service %s already has %d sms senders", domain.ErrValidation, serviceID, len(existing))
		}

		sender := &domain.ServiceSmsSender{ServiceID: serviceID, SMSSender: smsSender, IsDefault: true}
		if err := a.senders.Insert(ctx, sender); err != nil {
			return fmt.Errorf("failed to insert sms sender: %w", err)
		}
		created = sender
		return nil
	})
	a.recordMutation(opInitial, err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// currentDefault reads the default sender from the uncached store. It returns nil
// when the service has none.
func (a *SenderAllocator) currentDefault(ctx context.Context, serviceID string) (*domain.ServiceSmsSender, error) {
	senders, err := a.senders.ListByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sms senders: %w", err)
	}

	var defaults []domain.ServiceSmsSender
	for _, sender := range senders {
		if sender.IsDefault {
			defaults = append(defaults, sender)
		}
	}

	switch len(defaults) {
	case 0:
		return nil, nil
	case 1:
		return &defaults[0], nil
	default:
		a.logger.Error("service has several default sms senders",
			zap.String("serviceId", serviceID),
			zap.Int("defaults", len(defaults)),
		)
		return nil, fmt.Errorf("%w: service %s has %d default sms senders", domain.ErrConsistency, serviceID, len(defaults))
	}
}

func (a *SenderAllocator) handleDefaultChange(ctx context.Context, serviceID, senderID string, isDefault bool) error {
	current, err := a.currentDefault(ctx, serviceID)
	if err != nil {
		return err
	}

	if !isDefault {
		if current == nil || current.ID == senderID {
			return fmt.Errorf("%w: sender %s cannot stop being the default of service %s",
				domain.ErrDefaultSenderRequired, senderID, serviceID)
		}
		return nil
	}

	if current != nil && current.ID != senderID {
		return a.demote(ctx, current)
	}
	return nil
}

func (a *SenderAllocator) demote(ctx context.Context, sender *domain.ServiceSmsSender) error {
	if err := a.senders.UpdateFields(ctx, sender.ID, domain.SenderUpdate{IsDefault: domain.Some(false)}); err != nil {
		return fmt.Errorf("failed to demote default sms sender %s: %w", sender.ID, err)
	}
	return nil
}

// claim assigns the inbound number to serviceID with a single conditional write.
func (a *SenderAllocator) claim(ctx context.Context, numberID, serviceID string) (*domain.InboundNumber, error) {
	rows, err := a.numbers.ClaimForService(ctx, numberID, serviceID)
	if err != nil {
		a.metrics.IncInboundNumberClaim("error")
		return nil, fmt.Errorf("failed to claim inbound number %s: %w", numberID, err)
	}
	if rows == 0 {
		a.metrics.IncInboundNumberClaim("unavailable")
		observability.WithContextLogger(a.logger, ctx).Warn("inbound number unavailable",
			zap.String("inboundNumberId", numberID),
			zap.String("serviceId", serviceID),
		)
		return nil, fmt.Errorf("%w: inbound number %s", domain.ErrNumberUnavailable, numberID)
	}
	a.metrics.IncInboundNumberClaim("claimed")

	number, err := a.numbers.GetByID(ctx, numberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed inbound number %s: %w", numberID, err)
	}
	return number, nil
}

func (a *SenderAllocator) validateProvider(ctx context.Context, providerID *string) error {
	if providerID == nil {
		return fmt.Errorf("%w: provider id is required", domain.ErrProviderNotFound)
	}

	_, err := a.providers.GetByID(ctx, *providerID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: no provider details found for id %s", domain.ErrProviderNotFound, *providerID)
	}
	if err != nil {
		return fmt.Errorf("failed to load provider %s: %w", *providerID, err)
	}
	return nil
}

func (a *SenderAllocator) recordMutation(operation string, err error) {
	switch {
	case err == nil:
		a.metrics.IncSenderMutation(operation, "success")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		a.metrics.IncSenderMutation(operation, "rejected")
	default:
		a.metrics.IncSenderMutation(operation, "error")
	}
}

// validateRateLimit rejects values below 1. A new sender (existing == nil) takes
// both fields or neither; an updated sender must end up with both or neither.
func validateRateLimit(existing *domain.ServiceSmsSender, rateLimit, interval domain.Optional[*int]) error {
	if v, ok := rateLimit.Get(); ok && v != nil && *v < 1 {
		return fmt.Errorf("%w: rate_limit cannot be less than 1", domain.ErrRateLimitPairing)
	}
	if v, ok := interval.Get(); ok && v != nil && *v < 1 {
		return fmt.Errorf("%w: rate_limit_interval cannot be less than 1", domain.ErrRateLimitPairing)
	}

	if existing == nil {
		if (rateLimit.Value == nil) != (interval.Value == nil) {
			return fmt.Errorf("%w: provide both rate_limit and rate_limit_interval, or neither", domain.ErrRateLimitPairing)
		}
		return nil
	}

	mergedLimit, mergedInterval := existing.RateLimit, existing.RateLimitInterval
	if rateLimit.Set {
		mergedLimit = rateLimit.Value
	}
	if interval.Set {
		mergedInterval = interval.Value
	}
	if (mergedLimit == nil) != (mergedInterval == nil) {
		return fmt.Errorf("%w: sender cannot have only one of rate_limit and rate_limit_interval", domain.ErrRateLimitPairing)
	}
	return nil
}

func sameID(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
