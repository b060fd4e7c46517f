package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseNotificationTypeFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    NotificationType
		wantErr bool
	}{
		{name: "valid lowercase", input: "sms", want: NotificationTypeSMS},
		{name: "valid uppercase with spaces", input: " EMAIL ", want: NotificationTypeEmail},
		{name: "letter", input: "letter", want: NotificationTypeLetter},
		{name: "invalid", input: "push", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseNotificationTypeFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseNotificationTypeFromString() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNotificationTypeFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseNotificationTypeFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestServiceRefProviderIDFor(t *testing.T) {
	t.Parallel()

	svc := ServiceRef{EmailProviderID: Ptr("email-p"), SMSProviderID: Ptr("sms-p")}

	if got := svc.ProviderIDFor(NotificationTypeEmail); got == nil || *got != "email-p" {
		t.Fatalf("email override = %v, want email-p", got)
	}
	if got := svc.ProviderIDFor(NotificationTypeSMS); got == nil || *got != "sms-p" {
		t.Fatalf("sms override = %v, want sms-p", got)
	}
	if got := svc.ProviderIDFor(NotificationTypeLetter); got != nil {
		t.Fatalf("letter override = %v, want nil", *got)
	}
}

func TestSenderErrorsAreValidationErrors(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		ErrDefaultSenderRequired,
		ErrSenderNumberMismatch,
		ErrSenderNumberImmutable,
		ErrNumberUnavailable,
		ErrProviderNotFound,
		ErrRateLimitPairing,
	} {
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%v should wrap ErrValidation", err)
		}
	}
	if errors.Is(ErrConsistency, ErrValidation) {
		t.Fatal("ErrConsistency must not be a validation error")
	}
}

func TestRateLimitErrorRetryAfter(t *testing.T) {
	t.Parallel()

	err := NewRateLimitError("sender-1", 4, 2)
	if err.RetryAfter != 500*time.Millisecond {
		t.Fatalf("RetryAfter = %s, want 500ms", err.RetryAfter)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("RateLimitError should wrap ErrRateLimited")
	}

	var rlErr *RateLimitError
	if !errors.As(error(err), &rlErr) || rlErr.SenderID != "sender-1" {
		t.Fatalf("errors.As() = %v, want sender-1", rlErr)
	}
}

func TestAddSenderParamsValidate(t *testing.T) {
	t.Parallel()

	base := AddSenderParams{ServiceID: "svc-1", SMSSender: "+15550001111", IsDefault: true}

	tests := []struct {
		name    string
		mutate  func(*AddSenderParams)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *AddSenderParams) {}},
		{name: "missing service", mutate: func(p *AddSenderParams) { p.ServiceID = " " }, wantErr: true},
		{name: "missing sender", mutate: func(p *AddSenderParams) { p.SMSSender = "" }, wantErr: true},
		{
			name:    "sender too long",
			mutate:  func(p *AddSenderParams) { p.SMSSender = strings.Repeat("1", MaxSMSSenderLength+1) },
			wantErr: true,
		},
		{
			name:    "description too long",
			mutate:  func(p *AddSenderParams) { p.Description = Ptr(strings.Repeat("d", MaxDescriptionLength+1)) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestSenderUpdateApply(t *testing.T) {
	t.Parallel()

	sender := ServiceSmsSender{
		SMSSender:         "+15550001111",
		IsDefault:         true,
		RateLimit:         Ptr(5),
		RateLimitInterval: Ptr(10),
		Description:       Ptr("old"),
	}

	update := SenderUpdate{
		IsDefault:   Some(false),
		RateLimit:   Some[*int](nil),
		Description: Some(Ptr("new")),
	}
	if update.IsEmpty() {
		t.Fatal("update should not be empty")
	}
	update.Apply(&sender)

	if sender.IsDefault {
		t.Fatal("IsDefault should be cleared")
	}
	if sender.RateLimit != nil {
		t.Fatalf("RateLimit = %v, want nil", *sender.RateLimit)
	}
	if sender.RateLimitInterval == nil || *sender.RateLimitInterval != 10 {
		t.Fatal("RateLimitInterval should be untouched")
	}
	if sender.SMSSender != "+15550001111" {
		t.Fatalf("SMSSender = %q, should be untouched", sender.SMSSender)
	}
	if sender.Description == nil || *sender.Description != "new" {
		t.Fatal("Description should be replaced")
	}

	if !(SenderUpdate{}).IsEmpty() {
		t.Fatal("zero update should be empty")
	}
}

func TestProviderWeight(t *testing.T) {
	t.Parallel()

	if got := (Provider{}).Weight(); got != 0 {
		t.Fatalf("nil weight = %d, want 0", got)
	}
	if got := (Provider{LoadBalancingWeight: Ptr(-3)}).Weight(); got != 0 {
		t.Fatalf("negative weight = %d, want 0", got)
	}
	if got := (Provider{LoadBalancingWeight: Ptr(40)}).Weight(); got != 40 {
		t.Fatalf("weight = %d, want 40", got)
	}
}
