package controller

import (
	"encoding/json"
	"time"

	"github.com/commercegate/paypal-sessions/internal/domain/session"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (validation tags, optional fields).
// Controllers convert these to service layer arguments before calling
// business logic.

// CreateSessionRequest holds the input for creating a payment session.
type CreateSessionRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,len=3"`
}

// UpdateSessionRequest holds the input for updating a session. Amount and
// Data are independent: an amount change goes through the provider's
// update path, everything else is metadata.
type UpdateSessionRequest struct {
	Amount   *float64       `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Currency *string        `json:"currency,omitempty" validate:"omitempty,len=3"`
	Data     map[string]any `json:"data,omitempty"`
}

// RefundSessionRequest holds the input for a refund.
type RefundSessionRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// --- Response DTOs ---

// SessionResponse represents a payment session in API responses.
type SessionResponse struct {
	ID        string          `json:"id"`
	Amount    float64         `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	LastError *string         `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WebhookResponse acknowledges an inbound webhook.
type WebhookResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
}

// ErrorResponse represents an error response. The shape matches the
// provider-normalized error so clients see one error format everywhere.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// --- Conversion helpers ---

// FromSession converts a domain session to an API response.
func FromSession(s *session.PaymentSession) *SessionResponse {
	resp := &SessionResponse{
		ID:        s.ID.String(),
		Amount:    s.Amount,
		Currency:  s.Currency,
		Status:    string(s.Status),
		Data:      s.Data,
		LastError: s.LastError,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if len(s.Metadata) > 0 {
		resp.Metadata = s.Metadata
	}
	return resp
}
