package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/notify-router/internal/domain"
)

const (
	serviceA = "5c3f2f9e-7f4e-4d55-9b1a-0c1f7d7a0001"
	serviceB = "5c3f2f9e-7f4e-4d55-9b1a-0c1f7d7a0002"
)

func TestListActiveOrdersAndFilters(t *testing.T) {
	t.Parallel()

	s := New()
	s.PutProvider(domain.Provider{ID: "c", NotificationType: domain.NotificationTypeSMS, Priority: 10, Active: true})
	s.PutProvider(domain.Provider{ID: "a", NotificationType: domain.NotificationTypeSMS, Priority: 10, Active: true, SupportsInternational: true})
	s.PutProvider(domain.Provider{ID: "b", NotificationType: domain.NotificationTypeSMS, Priority: 5, Active: true})
	s.PutProvider(domain.Provider{ID: "d", NotificationType: domain.NotificationTypeSMS, Priority: 1, Active: false})
	s.PutProvider(domain.Provider{ID: "e", NotificationType: domain.NotificationTypeEmail, Priority: 1, Active: true})

	got, err := s.Providers().ListActive(context.Background(), domain.NotificationTypeSMS, false)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("ListActive() len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("ListActive()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}

	got, err = s.Providers().ListActive(context.Background(), domain.NotificationTypeSMS, true)
	if err != nil {
		t.Fatalf("ListActive(international) error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("ListActive(international) = %+v, want only provider a", got)
	}
}

func TestSenderLookups(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	s.PutSender(domain.ServiceSmsSender{ID: "s2", ServiceID: serviceA, SMSSender: "07700900002", CreatedAt: base.Add(time.Minute)})
	s.PutSender(domain.ServiceSmsSender{ID: "s1", ServiceID: serviceA, SMSSender: "07700900001", IsDefault: true, CreatedAt: base.Add(2 * time.Minute)})
	s.PutSender(domain.ServiceSmsSender{ID: "s3", ServiceID: serviceA, SMSSender: "07700900002", CreatedAt: base})
	s.PutSender(domain.ServiceSmsSender{ID: "s4", ServiceID: serviceA, SMSSender: "07700900004", Archived: true, CreatedAt: base})
	s.PutSender(domain.ServiceSmsSender{ID: "s5", ServiceID: serviceB, SMSSender: "07700900005", IsDefault: true, CreatedAt: base})

	senders := s.Senders()
	ctx := context.Background()

	list, err := senders.ListByService(ctx, serviceA)
	if err != nil {
		t.Fatalf("ListByService() error = %v", err)
	}
	want := []string{"s1", "s3", "s2"}
	if len(list) != len(want) {
		t.Fatalf("ListByService() len = %d, want %d", len(list), len(want))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("ListByService()[%d] = %s, want %s", i, list[i].ID, id)
		}
	}

	def, err := senders.GetDefaultByService(ctx, serviceA)
	if err != nil || def.ID != "s1" {
		t.Fatalf("GetDefaultByService() = %+v, %v; want s1", def, err)
	}

	byNumber, err := senders.GetByServiceAndNumber(ctx, serviceA, "07700900002")
	if err != nil || byNumber.ID != "s3" {
		t.Fatalf("GetByServiceAndNumber() = %+v, %v; want earliest s3", byNumber, err)
	}

	if _, err := senders.GetByID(ctx, serviceB, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID(foreign service) error = %v, want %v", err, domain.ErrNotFound)
	}
	if _, err := senders.GetByID(ctx, serviceA, "s4"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID(archived) error = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestInsertEnforcesUniqueIndexes(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	numberID := "n1"

	first := &domain.ServiceSmsSender{ServiceID: serviceA, SMSSender: "a", IsDefault: true, InboundNumberID: &numberID}
	if err := s.Senders().Insert(ctx, first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("Insert() did not assign id and created_at: %+v", first)
	}

	err := s.Senders().Insert(ctx, &domain.ServiceSmsSender{ServiceID: serviceA, SMSSender: "b", IsDefault: true})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Insert(second default) error = %v, want %v", err, domain.ErrConflict)
	}

	err = s.Senders().Insert(ctx, &domain.ServiceSmsSender{ServiceID: serviceB, SMSSender: "c", InboundNumberID: &numberID})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Insert(shared inbound number) error = %v, want %v", err, domain.ErrConflict)
	}
}

func TestWithinTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := New()
	s.PutInboundNumber(domain.InboundNumber{ID: "n1", Number: "07700900111", Active: true})
	boom := errors.New("boom")

	err := s.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := s.InboundNumbers().ClaimForService(ctx, "n1", serviceA); err != nil {
			return err
		}
		if err := s.Senders().Insert(ctx, &domain.ServiceSmsSender{ServiceID: serviceA, SMSSender: "x", IsDefault: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTransaction() error = %v, want %v", err, boom)
	}

	n, _ := s.InboundNumber("n1")
	if n.ServiceID != nil {
		t.Fatalf("claim should be rolled back, service id = %s", *n.ServiceID)
	}
	list, _ := s.Senders().ListByService(context.Background(), serviceA)
	if len(list) != 0 {
		t.Fatalf("insert should be rolled back, got %d senders", len(list))
	}
}

func TestClaimForServiceGrantsExactlyOneWinner(t *testing.T) {
	t.Parallel()

	s := New()
	s.PutInboundNumber(domain.InboundNumber{ID: "n1", Number: "07700900111", Active: true})

	const claimers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := range claimers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			serviceID := serviceA
			if i%2 == 1 {
				serviceID = serviceB
			}
			rows, err := s.InboundNumbers().ClaimForService(context.Background(), "n1", serviceID)
			if err != nil {
				t.Errorf("ClaimForService() error = %v", err)
				return
			}
			if rows == 1 {
				mu.Lock()
				winners = append(winners, serviceID)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("winners = %d, want 1", len(winners))
	}
	n, _ := s.InboundNumber("n1")
	if n.ServiceID == nil || *n.ServiceID != winners[0] {
		t.Fatalf("number service id = %v, want %s", n.ServiceID, winners[0])
	}
}

func TestClaimForServiceSkipsInactiveNumbers(t *testing.T) {
	t.Parallel()

	s := New()
	s.PutInboundNumber(domain.InboundNumber{ID: "n1", Number: "07700900111", Active: false})

	rows, err := s.InboundNumbers().ClaimForService(context.Background(), "n1", serviceA)
	if err != nil {
		t.Fatalf("ClaimForService() error = %v", err)
	}
	if rows != 0 {
		t.Fatalf("ClaimForService() rows = %d, want 0", rows)
	}
}
