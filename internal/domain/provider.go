package domain

import "time"

// Provider is an outbound delivery channel. It is read-only for this module.
type Provider struct {
	ID                    string
	DisplayName           string
	Identifier            string
	Priority              int
	LoadBalancingWeight   *int
	NotificationType      NotificationType
	Active                bool
	SupportsInternational bool
	UpdatedAt             time.Time
}

// Weight returns the load balancing weight, treating unset and negative weights as zero.
func (p Provider) Weight() int {
	if p.LoadBalancingWeight == nil || *p.LoadBalancingWeight < 0 {
		return 0
	}
	return *p.LoadBalancingWeight
}
