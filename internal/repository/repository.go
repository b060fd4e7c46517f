package repository

import (
	"context"

	"github.com/kursadbilgin/notify-router/internal/domain"
)

// ProviderRepository reads provider records. Lookups of unknown ids return domain.ErrNotFound.
type ProviderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Provider, error)
	// ListActive returns active providers of a type ordered by priority then id.
	// With international set, only providers supporting international delivery are returned.
	ListActive(ctx context.Context, notificationType domain.NotificationType, international bool) ([]domain.Provider, error)
}

// SenderRepository reads and writes non-archived service sms senders.
type SenderRepository interface {
	GetByID(ctx context.Context, serviceID, senderID string) (*domain.ServiceSmsSender, error)
	// ListByService returns the service's senders, default first.
	ListByService(ctx context.Context, serviceID string) ([]domain.ServiceSmsSender, error)
	GetDefaultByService(ctx context.Context, serviceID string) (*domain.ServiceSmsSender, error)
	GetByServiceAndNumber(ctx context.Context, serviceID, number string) (*domain.ServiceSmsSender, error)
	Insert(ctx context.Context, sender *domain.ServiceSmsSender) error
	UpdateFields(ctx context.Context, senderID string, update domain.SenderUpdate) error
}

// InboundNumberRepository reads the shared inbound number pool and claims numbers from it.
type InboundNumberRepository interface {
	GetByID(ctx context.Context, id string) (*domain.InboundNumber, error)
	// ClaimForService assigns the number to serviceID in a single conditional write,
	// only if it is active and unclaimed. It returns the number of rows changed (0 or 1).
	ClaimForService(ctx context.Context, numberID, serviceID string) (int64, error)
}

// Transactor runs fn inside one atomic unit of work. Repositories called with the
// context passed to fn take part in the transaction; fn returning an error rolls back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
