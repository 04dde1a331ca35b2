package testutil

import (
	"encoding/json"
	"time"

	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/google/uuid"
)

// NewTestSession builds a session in the given state with a minimal
// provider snapshot attached.
func NewTestSession(status session.Status) *session.PaymentSession {
	now := time.Now()
	return &session.PaymentSession{
		ID:        uuid.New(),
		Amount:    49.99,
		Currency:  "USD",
		Status:    status,
		Data:      json.RawMessage(`{"id":"ORDER-TEST","status":"CREATED"}`),
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
