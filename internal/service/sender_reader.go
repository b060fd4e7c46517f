package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kursadbilgin/notify-router/internal/cache"
	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/observability"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"go.uber.org/zap"
)

// Cache lookup kinds, used in keys and metrics.
const (
	lookupByID     = "sender"
	lookupList     = "senders"
	lookupDefault  = "default"
	lookupByNumber = "number"
)

// SenderReader serves sender reads through a time-boxed cache.
// Writers never purge entries: a read may be stale for up to the cache TTL
// after a mutation. Absent default and by-number results are cached too;
// errors never are.
type SenderReader struct {
	senders repository.SenderRepository
	store   cache.Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewSenderReader(
	senders repository.SenderRepository,
	store cache.Store,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*SenderReader, error) {
	if senders == nil {
		return nil, fmt.Errorf("sender repository is required")
	}
	if store == nil {
		store = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SenderReader{senders: senders, store: store, logger: logger, metrics: metrics}, nil
}

type cacheEnvelope[T any] struct {
	Found bool `json:"found"`
	Value T    `json:"value"`
}

func (r *SenderReader) GetByID(ctx context.Context, serviceID, senderID string) (*domain.ServiceSmsSender, error) {
	key := fmt.Sprintf("%s:%s:%s", lookupByID, serviceID, senderID)
	return readSender(ctx, r, lookupByID, key, false, func(ctx context.Context) (*domain.ServiceSmsSender, error) {
		return r.senders.GetByID(ctx, serviceID, senderID)
	})
}

func (r *SenderReader) ListByService(ctx context.Context, serviceID string) ([]domain.ServiceSmsSender, error) {
	key := fmt.Sprintf("%s:%s", lookupList, serviceID)
	senders, _, err := readThrough(ctx, r, lookupList, key, false, func(ctx context.Context) ([]domain.ServiceSmsSender, bool, error) {
		senders, err := r.senders.ListByService(ctx, serviceID)
		return senders, true, err
	})
	return senders, err
}

func (r *SenderReader) GetDefaultByService(ctx context.Context, serviceID string) (*domain.ServiceSmsSender, error) {
	key := fmt.Sprintf("%s:%s", lookupDefault, serviceID)
	return readSender(ctx, r, lookupDefault, key, true, func(ctx context.Context) (*domain.ServiceSmsSender, error) {
		return r.senders.GetDefaultByService(ctx, serviceID)
	})
}

func (r *SenderReader) GetByServiceAndNumber(ctx context.Context, serviceID, number string) (*domain.ServiceSmsSender, error) {
	key := fmt.Sprintf("%s:%s:%s", lookupByNumber, serviceID, number)
	return readSender(ctx, r, lookupByNumber, key, true, func(ctx context.Context) (*domain.ServiceSmsSender, error) {
		return r.senders.GetByServiceAndNumber(ctx, serviceID, number)
	})
}

// readSender adapts single-sender lookups, mapping domain.ErrNotFound to a negative result.
func readSender(
	ctx context.Context,
	r *SenderReader,
	lookup, key string,
	cacheMissing bool,
	load func(ctx context.Context) (*domain.ServiceSmsSender, error),
) (*domain.ServiceSmsSender, error) {
	sender, found, err := readThrough(ctx, r, lookup, key, cacheMissing, func(ctx context.Context) (*domain.ServiceSmsSender, bool, error) {
		sender, err := load(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return sender, err == nil, err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return sender, nil
}

// readThrough serves key from the store, or loads and stores it. Store failures
// degrade to a direct load.
func readThrough[T any](
	ctx context.Context,
	r *SenderReader,
	lookup, key string,
	cacheMissing bool,
	load func(ctx context.Context) (T, bool, error),
) (T, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(r.logger, ctx)

	raw, hit, err := r.store.Get(ctx, key)
	if err != nil {
		logger.Warn("sender cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		var envelope cacheEnvelope[T]
		if err := json.Unmarshal(raw, &envelope); err == nil {
			r.metrics.IncSenderCache(lookup, true)
			return envelope.Value, envelope.Found, nil
		}
		logger.Warn("sender cache entry is corrupt", zap.String("key", key))
	}
	r.metrics.IncSenderCache(lookup, false)

	value, found, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if !found && !cacheMissing {
		return value, false, nil
	}

	encoded, err := json.Marshal(cacheEnvelope[T]{Found: found, Value: value})
	if err != nil {
		logger.Warn("sender cache encode failed", zap.String("key", key), zap.Error(err))
		return value, found, nil
	}
	if err := r.store.Set(ctx, key, encoded); err != nil {
		logger.Warn("sender cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, found, nil
}
