package domain

import (
	"fmt"
	"strings"
	"time"
)

// Column limits for sender text fields.
const (
	MaxSMSSenderLength   = 256
	MaxDescriptionLength = 256
)

// ServiceSmsSender is an identity a service's outbound SMS appears to originate from.
type ServiceSmsSender struct {
	ID                 string
	ServiceID          string
	SMSSender          string
	IsDefault          bool
	Archived           bool
	InboundNumberID    *string
	ProviderID         *string
	RateLimit          *int
	RateLimitInterval  *int
	SMSSenderSpecifics map[string]any
	Description        *string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// HasRateLimit reports whether both halves of the rate limit are configured.
func (s ServiceSmsSender) HasRateLimit() bool {
	return s.RateLimit != nil && s.RateLimitInterval != nil
}

// InboundNumber is a pool phone number leased to at most one service at a time.
type InboundNumber struct {
	ID        string
	Number    string
	Provider  string
	ServiceID *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// IsClaimable reports whether the number could be claimed right now.
func (n InboundNumber) IsClaimable() bool {
	return n.Active && n.ServiceID == nil
}

// AddSenderParams describes a new sender for a service.
type AddSenderParams struct {
	ServiceID          string
	SMSSender          string
	IsDefault          bool
	ProviderID         *string
	Description        *string
	InboundNumberID    *string
	RateLimit          *int
	RateLimitInterval  *int
	SMSSenderSpecifics map[string]any
}

func (p AddSenderParams) Validate() error {
	if strings.TrimSpace(p.ServiceID) == "" {
		return fmt.Errorf("%w: service id is required", ErrValidation)
	}
	if err := validateSMSSender(p.SMSSender); err != nil {
		return err
	}
	return validateDescription(p.Description)
}

// SenderUpdate is a partial update; only fields with Set == true are applied.
// Nullable columns use pointer values so they can be cleared explicitly.
type SenderUpdate struct {
	SMSSender          Optional[string]
	IsDefault          Optional[bool]
	InboundNumberID    Optional[*string]
	ProviderID         Optional[*string]
	RateLimit          Optional[*int]
	RateLimitInterval  Optional[*int]
	SMSSenderSpecifics Optional[map[string]any]
	Description        Optional[*string]
}

// IsEmpty reports whether the update carries no field at all.
func (u SenderUpdate) IsEmpty() bool {
	return !u.SMSSender.Set && !u.IsDefault.Set && !u.InboundNumberID.Set && !u.ProviderID.Set &&
		!u.RateLimit.Set && !u.RateLimitInterval.Set && !u.SMSSenderSpecifics.Set && !u.Description.Set
}

func (u SenderUpdate) Validate() error {
	if u.SMSSender.Set {
		if err := validateSMSSender(u.SMSSender.Value); err != nil {
			return err
		}
	}
	if u.Description.Set {
		return validateDescription(u.Description.Value)
	}
	return nil
}

// Apply copies every supplied field onto s.
func (u SenderUpdate) Apply(s *ServiceSmsSender) {
	if s == nil {
		return
	}
	if v, ok := u.SMSSender.Get(); ok {
		s.SMSSender = v
	}
	if v, ok := u.IsDefault.Get(); ok {
		s.IsDefault = v
	}
	if v, ok := u.InboundNumberID.Get(); ok {
		s.InboundNumberID = v
	}
	if v, ok := u.ProviderID.Get(); ok {
		s.ProviderID = v
	}
	if v, ok := u.RateLimit.Get(); ok {
		s.RateLimit = v
	}
	if v, ok := u.RateLimitInterval.Get(); ok {
		s.RateLimitInterval = v
	}
	if v, ok := u.SMSSenderSpecifics.Get(); ok {
		s.SMSSenderSpecifics = v
	}
	if v, ok := u.Description.Get(); ok {
		s.Description = v
	}
}

func validateSMSSender(sender string) error {
	if strings.TrimSpace(sender) == "" {
		return fmt.Errorf("%w: sms sender is required", ErrValidation)
	}
	if n := len([]rune(sender)); n > MaxSMSSenderLength {
		return fmt.Errorf("%w: sms sender exceeds %d characters (got %d)", ErrValidation, MaxSMSSenderLength, n)
	}
	return nil
}

func validateDescription(description *string) error {
	if description == nil {
		return nil
	}
	if n := len([]rune(*description)); n > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters (got %d)", ErrValidation, MaxDescriptionLength, n)
	}
	return nil
}
