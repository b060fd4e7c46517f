// Package strategy chooses a delivery provider when a notification carries no
// explicit provider override.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kursadbilgin/notify-router/internal/domain"
	"github.com/kursadbilgin/notify-router/internal/repository"
	"go.uber.org/zap"
)

// Label is the stable name a strategy is registered and configured under.
type Label string

const (
	LabelHighestPriority Label = "HighestPriorityStrategy"
	LabelLoadBalancing   Label = "LoadBalancingStrategy"
)

func (l Label) String() string { return string(l) }

type Strategy interface {
	Label() Label
	// Validate fails with domain.ErrConfiguration when no active provider of the
	// type could ever satisfy the strategy. It is meant to run once at startup.
	Validate(ctx context.Context, notificationType domain.NotificationType) error
	// GetProvider returns nil without error when nothing matches.
	GetProvider(ctx context.Context, req domain.RoutingRequest) (*domain.Provider, error)
}

// Factory builds a strategy over a provider repository.
type Factory func(providers repository.ProviderRepository, logger *zap.Logger) Strategy

var registry = map[Label]Factory{
	LabelHighestPriority: func(providers repository.ProviderRepository, logger *zap.Logger) Strategy {
		return NewHighestPriority(providers, logger)
	},
	LabelLoadBalancing: func(providers repository.ProviderRepository, logger *zap.Logger) Strategy {
		return NewLoadBalancing(providers, logger, nil)
	},
}

// Labels lists the registered strategy labels in sorted order.
func Labels() []Label {
	labels := make([]Label, 0, len(registry))
	for label := range registry {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// Resolve looks label up in the registry and builds the strategy.
func Resolve(label Label, providers repository.ProviderRepository, logger *zap.Logger) (Strategy, error) {
	factory, ok := registry[Label(strings.TrimSpace(string(label)))]
	if !ok {
		names := make([]string, 0, len(registry))
		for _, l := range Labels() {
			names = append(names, l.String())
		}
		return nil, fmt.Errorf(
			"%w: unknown provider selection strategy %q (known: %s)",
			domain.ErrConfiguration, label, strings.Join(names, ", "),
		)
	}
	if providers == nil {
		return nil, fmt.Errorf("%w: provider repository is required", domain.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return factory(providers, logger), nil
}
