package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/notify-router/internal/cache"
	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/observability"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"github.com/kursadbilgin/notify-router/internal/repository/memstore"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type countingSenderRepo struct {
	repository.SenderRepository
	calls map[string]int
}

func (r *countingSenderRepo) GetByID(ctx context.Context, serviceID, senderID string) (*domain.ServiceSmsSender, error) {
	r.calls["get"]++
	return r.SenderRepository.GetByID(ctx, serviceID, senderID)
}

func (r *countingSenderRepo) ListByService(ctx context.Context, serviceID string) ([]domain.ServiceSmsSender, error) {
	r.calls["list"]++
	return r.SenderRepository.ListByService(ctx, serviceID)
}

func (r *countingSenderRepo) GetDefaultByService(ctx context.Context, serviceID string) (*domain.ServiceSmsSender, error) {
	r.calls["default"]++
	return r.SenderRepository.GetDefaultByService(ctx, serviceID)
}

func (r *countingSenderRepo) GetByServiceAndNumber(ctx context.Context, serviceID, number string) (*domain.ServiceSmsSender, error) {
	r.calls["number"]++
	return r.SenderRepository.GetByServiceAndNumber(ctx, serviceID, number)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("cache down") }

func newReaderFixture(t *testing.T, store cache.Store) (*SenderReader, *memstore.Store, *countingSenderRepo, *observability.Metrics) {
	t.Helper()

	mem := memstore.New()
	repo := &countingSenderRepo{SenderRepository: mem.Senders(), calls: map[string]int{}}
	metrics := observability.NewMetrics()
	reader, err := NewSenderReader(repo, store, nil, metrics)
	if err != nil {
		t.Fatalf("NewSenderReader() error = %v", err)
	}
	return reader, mem, repo, metrics
}

func TestSenderReaderServesFromCache(t *testing.T) {
	t.Parallel()

	reader, mem, repo, metrics := newReaderFixture(t, cache.NewMemory(time.Hour, 100))
	mem.PutSender(domain.ServiceSmsSender{
		ID:                 "s-1",
		ServiceID:          testServiceID,
		SMSSender:          "GOVUK",
		IsDefault:          true,
		RateLimit:          domain.Ptr(5),
		RateLimitInterval:  domain.Ptr(60),
		SMSSenderSpecifics: map[string]any{"region": "eu"},
	})
	ctx := context.Background()

	for range 3 {
		got, err := reader.GetByID(ctx, testServiceID, "s-1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.SMSSender != "GOVUK" || *got.RateLimit != 5 || got.SMSSenderSpecifics["region"] != "eu" {
			t.Fatalf("GetByID() = %+v", got)
		}
		if _, err := reader.ListByService(ctx, testServiceID); err != nil {
			t.Fatalf("ListByService() error = %v", err)
		}
		if _, err := reader.GetDefaultByService(ctx, testServiceID); err != nil {
			t.Fatalf("GetDefaultByService() error = %v", err)
		}
		if _, err := reader.GetByServiceAndNumber(ctx, testServiceID, "GOVUK"); err != nil {
			t.Fatalf("GetByServiceAndNumber() error = %v", err)
		}
	}

	for _, lookup := range []string{"get", "list", "default", "number"} {
		if repo.calls[lookup] != 1 {
			t.Fatalf("repository %s calls = %d, want 1", lookup, repo.calls[lookup])
		}
	}
	if got := testutil.ToFloat64(metrics.SenderCacheRequests("sender", "hit")); got != 2 {
		t.Fatalf("sender_cache_requests_total{sender,hit} = %v, want 2", got)
	}
}

func TestSenderReaderIsStaleAfterWrites(t *testing.T) {
	t.Parallel()

	reader, mem, _, _ := newReaderFixture(t, cache.NewMemory(time.Hour, 100))
	mem.PutSender(domain.ServiceSmsSender{ID: "s-1", ServiceID: testServiceID, SMSSender: "GOVUK", IsDefault: true})
	ctx := context.Background()

	if _, err := reader.GetByID(ctx, testServiceID, "s-1"); err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if err := mem.Senders().UpdateFields(ctx, "s-1", domain.SenderUpdate{SMSSender: domain.Some("NEWNAME")}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}

	got, err := reader.GetByID(ctx, testServiceID, "s-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.SMSSender != "GOVUK" {
		t.Fatalf("GetByID() sms sender = %s, want cached GOVUK until expiry", got.SMSSender)
	}
}

func TestSenderReaderNegativeResults(t *testing.T) {
	t.Parallel()

	reader, mem, repo, _ := newReaderFixture(t, cache.NewMemory(time.Hour, 100))
	ctx := context.Background()

	for range 2 {
		if _, err := reader.GetDefaultByService(ctx, testServiceID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetDefaultByService() error = %v, want %v", err, domain.ErrNotFound)
		}
		if _, err := reader.GetByServiceAndNumber(ctx, testServiceID, "07700900001"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetByServiceAndNumber() error = %v, want %v", err, domain.ErrNotFound)
		}
		if _, err := reader.GetByID(ctx, testServiceID, "s-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetByID() error = %v, want %v", err, domain.ErrNotFound)
		}
	}

	if repo.calls["default"] != 1 || repo.calls["number"] != 1 {
		t.Fatalf("absent default/number lookups should be cached, calls = %v", repo.calls)
	}
	if repo.calls["get"] != 2 {
		t.Fatalf("absent by-id lookups should not be cached, calls = %d", repo.calls["get"])
	}

	mem.PutSender(domain.ServiceSmsSender{ID: "s-1", ServiceID: testServiceID, SMSSender: "GOVUK", IsDefault: true})
	if _, err := reader.GetByID(ctx, testServiceID, "s-1"); err != nil {
		t.Fatalf("GetByID() after insert error = %v", err)
	}
}

func TestSenderReaderDegradesWhenCacheFails(t *testing.T) {
	t.Parallel()

	reader, mem, repo, _ := newReaderFixture(t, failingStore{})
	mem.PutSender(domain.ServiceSmsSender{ID: "s-1", ServiceID: testServiceID, SMSSender: "GOVUK", IsDefault: true})

	for range 2 {
		got, err := reader.GetDefaultByService(context.Background(), testServiceID)
		if err != nil {
			t.Fatalf("GetDefaultByService() error = %v", err)
		}
		if got.ID != "s-1" {
			t.Fatalf("GetDefaultByService() = %s, want s-1", got.ID)
		}
	}
	if repo.calls["default"] != 2 {
		t.Fatalf("repository calls = %d, want 2 with a failing cache", repo.calls["default"])
	}
}

func TestSenderReaderWithoutStoreAlwaysLoads(t *testing.T) {
	t.Parallel()

	reader, mem, repo, _ := newReaderFixture(t, nil)
	mem.PutSender(domain.ServiceSmsSender{ID: "s-1", ServiceID: testServiceID, SMSSender: "GOVUK", IsDefault: true})

	for range 2 {
		senders, err := reader.ListByService(context.Background(), testServiceID)
		if err != nil {
			t.Fatalf("ListByService() error = %v", err)
		}
		if len(senders) != 1 {
			t.Fatalf("ListByService() len = %d, want 1", len(senders))
		}
	}
	if repo.calls["list"] != 2 {
		t.Fatalf("repository calls = %d, want 2", repo.calls["list"])
	}
}
