package domain

import (
	"fmt"
	"strings"
)

// NotificationType is the delivery channel a notification and a provider belong to.
type NotificationType string

const (
	NotificationTypeEmail  NotificationType = "email"
	NotificationTypeSMS    NotificationType = "sms"
	NotificationTypeLetter NotificationType = "letter"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeEmail, NotificationTypeSMS, NotificationTypeLetter:
		return true
	}
	return false
}

func ParseNotificationTypeFromString(s string) (NotificationType, error) {
	nt := NotificationType(strings.ToLower(strings.TrimSpace(s)))
	if !nt.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return nt, nil
}

// TemplateRef is the part of a template that influences provider routing.
type TemplateRef struct {
	ID         string
	ProviderID *string
}

// ServiceRef is the part of a service that influences provider routing.
type ServiceRef struct {
	ID              string
	EmailProviderID *string
	SMSProviderID   *string
}

// ProviderIDFor returns the service level provider override for a notification type.
func (s ServiceRef) ProviderIDFor(t NotificationType) *string {
	switch t {
	case NotificationTypeEmail:
		return s.EmailProviderID
	case NotificationTypeSMS:
		return s.SMSProviderID
	}
	return nil
}

// RoutingRequest is the read-only input of provider resolution. It is never persisted here.
type RoutingRequest struct {
	NotificationID   string
	NotificationType NotificationType
	International    bool
	Template         TemplateRef
	Service          ServiceRef
}

func (r RoutingRequest) Validate() error {
	if !r.NotificationType.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, r.NotificationType)
	}
	return nil
}
