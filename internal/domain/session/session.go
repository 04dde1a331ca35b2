package session

import (
	"encoding/json"
	"time"

	"github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment session status in the state machine.
type Status string

const (
	StatusPending      Status = "pending"
	StatusRequiresMore Status = "requires_more"
	StatusAuthorized   Status = "authorized"
	StatusCaptured     Status = "captured"
	StatusCanceled     Status = "canceled"
	StatusError        Status = "error"
)

// PaymentSession represents one checkout attempt against the payment
// provider. Data holds the provider's order snapshot verbatim; Status is
// derived from it and from webhook events.
type PaymentSession struct {
	ID        uuid.UUID
	Amount    float64
	Currency  string
	Status    Status
	Data      json.RawMessage
	Metadata  map[string]any
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a new payment session in pending state.
func New(amount float64, currency string) (*PaymentSession, error) {
	if amount <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &PaymentSession{
		ID:        uuid.New(),
		Amount:    amount,
		Currency:  currency,
		Status:    StatusPending,
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransitionTo checks if the session can transition to the given status.
func (s *PaymentSession) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusRequiresMore,
			StatusAuthorized,
			StatusCaptured,
			StatusCanceled,
			StatusError,
		},
		StatusRequiresMore: {
			StatusPending, // provider may report regressed approval
			StatusAuthorized,
			StatusCaptured,
			StatusCanceled,
			StatusError,
		},
		StatusAuthorized: {
			StatusCaptured,
			StatusCanceled,
			StatusError,
		},
		StatusCaptured: {
			StatusCanceled, // refund-as-cancel
			StatusError,
		},
		StatusCanceled: {}, // terminal
		StatusError: {
			StatusPending, // host may re-initiate
		},
	}

	allowed, exists := transitions[s.Status]
	if !exists {
		return false
	}
	for _, a := range allowed {
		if a == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the session to a new status.
func (s *PaymentSession) TransitionTo(newStatus Status) error {
	if s.Status == newStatus {
		return nil
	}
	if !s.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(s.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	s.Status = newStatus
	s.UpdatedAt = time.Now()
	return nil
}

// ApplyProviderStatus overwrites the status with what the provider reports.
// Provider status is authoritative, so no transition check applies here.
func (s *PaymentSession) ApplyProviderStatus(newStatus Status) {
	s.Status = newStatus
	s.UpdatedAt = time.Now()
}

// MarkAuthorized transitions the session to authorized status.
func (s *PaymentSession) MarkAuthorized() error {
	return s.TransitionTo(StatusAuthorized)
}

// MarkCaptured transitions the session to captured status.
func (s *PaymentSession) MarkCaptured() error {
	return s.TransitionTo(StatusCaptured)
}

// MarkCanceled transitions the session to canceled status.
func (s *PaymentSession) MarkCanceled() error {
	return s.TransitionTo(StatusCanceled)
}

// MarkFailed transitions the session to error status.
func (s *PaymentSession) MarkFailed(errorMsg string) error {
	if err := s.TransitionTo(StatusError); err != nil {
		return err
	}
	s.LastError = &errorMsg
	return nil
}

// IsTerminal checks if the session is in a terminal state.
func (s *PaymentSession) IsTerminal() bool {
	return s.Status == StatusCanceled
}
