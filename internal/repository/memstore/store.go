// Package memstore is an in-memory implementation of the repository ports.
// It is safe for concurrent use and intended for tests and local development.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/repository"
)

var (
	_ repository.ProviderRepository      = (*providerView)(nil)
	_ repository.SenderRepository        = (*senderView)(nil)
	_ repository.InboundNumberRepository = (*inboundNumberView)(nil)
	_ repository.Transactor              = (*Store)(nil)
)

type txKey struct{}

// Store holds providers, inbound numbers and senders.
// Transactions are serialized; a failed transaction restores the state taken at its start.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	providers map[string]domain.Provider
	numbers   map[string]domain.InboundNumber
	senders   map[string]domain.ServiceSmsSender

	now func() time.Time
}

func New() *Store {
	return &Store{
		providers: make(map[string]domain.Provider),
		numbers:   make(map[string]domain.InboundNumber),
		senders:   make(map[string]domain.ServiceSmsSender),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for created_at and updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Providers() repository.ProviderRepository { return &providerView{s: s} }

func (s *Store) Senders() repository.SenderRepository { return &senderView{s: s} }

func (s *Store) InboundNumbers() repository.InboundNumberRepository {
	return &inboundNumberView{s: s}
}

// PutProvider seeds or replaces a provider.
func (s *Store) PutProvider(p domain.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
}

// PutInboundNumber seeds or replaces an inbound number.
func (s *Store) PutInboundNumber(n domain.InboundNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[n.ID] = n
}

// PutSender seeds or replaces a sender without any constraint checks.
func (s *Store) PutSender(sender domain.ServiceSmsSender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders[sender.ID] = cloneSender(sender)
}

// InboundNumber returns the stored number, including its current service assignment.
func (s *Store) InboundNumber(id string) (domain.InboundNumber, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.numbers[id]
	return n, ok
}

// Sender returns the stored sender regardless of archived state.
func (s *Store) Sender(id string) (domain.ServiceSmsSender, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sender, ok := s.senders[id]
	return cloneSender(sender), ok
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type state struct {
	providers map[string]domain.Provider
	numbers   map[string]domain.InboundNumber
	senders   map[string]domain.ServiceSmsSender
}

func (s *Store) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	senders := make(map[string]domain.ServiceSmsSender, len(s.senders))
	for id, sender := range s.senders {
		senders[id] = cloneSender(sender)
	}
	return state{
		providers: maps.Clone(s.providers),
		numbers:   maps.Clone(s.numbers),
		senders:   senders,
	}
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = st.providers
	s.numbers = st.numbers
	s.senders = st.senders
}

// checkUnique mirrors the unique indexes of service_sms_senders.
// Callers must hold s.mu.
func (s *Store) checkUnique(candidate domain.ServiceSmsSender) error {
	for id, existing := range s.senders {
		if id == candidate.ID {
			continue
		}
		if candidate.InboundNumberID != nil && existing.InboundNumberID != nil &&
			*candidate.InboundNumberID == *existing.InboundNumberID {
			return fmt.Errorf("%w: inbound number %s already backs sender %s", domain.ErrConflict, *candidate.InboundNumberID, id)
		}
		if candidate.IsDefault && !candidate.Archived && existing.IsDefault && !existing.Archived &&
			existing.ServiceID == candidate.ServiceID {
			return fmt.Errorf("%w: service %s already has default sender %s", domain.ErrConflict, candidate.ServiceID, id)
		}
	}
	return nil
}

type providerView struct{ s *Store }

func (v *providerView) GetByID(_ context.Context, id string) (*domain.Provider, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	p, ok := v.s.providers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (v *providerView) ListActive(
	_ context.Context,
	notificationType domain.NotificationType,
	international bool,
) ([]domain.Provider, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	providers := make([]domain.Provider, 0, len(v.s.providers))
	for _, p := range v.s.providers {
		if p.NotificationType != notificationType || !p.Active {
			continue
		}
		if international && !p.SupportsInternational {
			continue
		}
		providers = append(providers, p)
	}

	sort.Slice(providers, func(i, j int) bool {
		if providers[i].Priority != providers[j].Priority {
			return providers[i].Priority < providers[j].Priority
		}
		return providers[i].ID < providers[j].ID
	})

	return providers, nil
}

type senderView struct{ s *Store }

func (v *senderView) GetByID(_ context.Context, serviceID, senderID string) (*domain.ServiceSmsSender, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	sender, ok := v.s.senders[senderID]
	if !ok || sender.Archived || sender.ServiceID != serviceID {
		return nil, domain.ErrNotFound
	}
	out := cloneSender(sender)
	return &out, nil
}

func (v *senderView) ListByService(_ context.Context, serviceID string) ([]domain.ServiceSmsSender, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.listLocked(serviceID), nil
}

func (v *senderView) listLocked(serviceID string) []domain.ServiceSmsSender {
	senders := make([]domain.ServiceSmsSender, 0)
	for _, sender := range v.s.senders {
		if sender.ServiceID == serviceID && !sender.Archived {
			senders = append(senders, cloneSender(sender))
		}
	}

	sort.Slice(senders, func(i, j int) bool {
		if senders[i].IsDefault != senders[j].IsDefault {
			return senders[i].IsDefault
		}
		if !senders[i].CreatedAt.Equal(senders[j].CreatedAt) {
			return senders[i].CreatedAt.Before(senders[j].CreatedAt)
		}
		return senders[i].ID < senders[j].ID
	})

	return senders
}

func (v *senderView) GetDefaultByService(_ context.Context, serviceID string) (*domain.ServiceSmsSender, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	senders := v.listLocked(serviceID)
	for i := range senders {
		if senders[i].IsDefault {
			return &senders[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v *senderView) GetByServiceAndNumber(_ context.Context, serviceID, number string) (*domain.ServiceSmsSender, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var match *domain.ServiceSmsSender
	senders := v.listLocked(serviceID)
	for i := range senders {
		if senders[i].SMSSender != number {
			continue
		}
		if match == nil || senders[i].CreatedAt.Before(match.CreatedAt) {
			match = &senders[i]
		}
	}
	if match == nil {
		return nil, domain.ErrNotFound
	}
	return match, nil
}

func (v *senderView) Insert(_ context.Context, sender *domain.ServiceSmsSender) error {
	if sender == nil {
		return fmt.Errorf("sender is required")
	}

	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	candidate := cloneSender(*sender)
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if _, exists := v.s.senders[candidate.ID]; exists {
		return fmt.Errorf("%w: sender %s already exists", domain.ErrConflict, candidate.ID)
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = v.s.now().UTC()
	}
	if err := v.s.checkUnique(candidate); err != nil {
		return err
	}

	v.s.senders[candidate.ID] = candidate
	*sender = cloneSender(candidate)
	return nil
}

func (v *senderView) UpdateFields(_ context.Context, senderID string, update domain.SenderUpdate) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	sender, ok := v.s.senders[senderID]
	if !ok {
		return domain.ErrNotFound
	}

	updated := cloneSender(sender)
	update.Apply(&updated)
	now := v.s.now().UTC()
	updated.UpdatedAt = &now
	if err := v.s.checkUnique(updated); err != nil {
		return err
	}

	v.s.senders[senderID] = updated
	return nil
}

type inboundNumberView struct{ s *Store }

func (v *inboundNumberView) GetByID(_ context.Context, id string) (*domain.InboundNumber, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	n, ok := v.s.numbers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (v *inboundNumberView) ClaimForService(_ context.Context, numberID, serviceID string) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	n, ok := v.s.numbers[numberID]
	if !ok || !n.IsClaimable() {
		return 0, nil
	}

	now := v.s.now().UTC()
	n.ServiceID = &serviceID
	n.UpdatedAt = &now
	v.s.numbers[numberID] = n
	return 1, nil
}

func cloneSender(s domain.ServiceSmsSender) domain.ServiceSmsSender {
	s.SMSSenderSpecifics = maps.Clone(s.SMSSenderSpecifics)
	return s
}
