package provider

import (
	"context"
	"encoding/json"

	"github.com/commercegate/paypal-sessions/internal/domain/session"
)

// WebhookAction is the host-side action derived from a provider webhook.
type WebhookAction string

const (
	WebhookActionAuthorized   WebhookAction = "authorized"
	WebhookActionSuccessful   WebhookAction = "successful"
	WebhookActionFailed       WebhookAction = "failed"
	WebhookActionNotSupported WebhookAction = "not_supported"
)

// InitiateRequest holds the input for starting a payment session with a
// provider. SessionID is the host session id the provider must correlate
// its own records to.
type InitiateRequest struct {
	SessionID string
	Amount    float64
	Currency  string
}

// UpdateRequest holds the input for changing the amount of an existing
// provider-side payment. Data is the session's current provider snapshot.
type UpdateRequest struct {
	SessionID string
	Amount    float64
	Currency  string
	Data      json.RawMessage
}

// AuthorizeResult is the outcome of AuthorizePayment: the fresh provider
// snapshot plus the session status derived from it.
type AuthorizeResult struct {
	Data   json.RawMessage
	Status session.Status
}

// WebhookVerifyRequest carries the transport-level signature fields of an
// inbound webhook. The provider merges in its configured webhook id.
type WebhookVerifyRequest struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
	Event            json.RawMessage
}

// WebhookResult maps a provider webhook onto a host action. SessionID is
// the provider-side resource id the event refers to (authorization or
// capture id, depending on the action).
type WebhookResult struct {
	Action    WebhookAction
	SessionID string
	Amount    float64
	Currency  string
}

// Provider is the payment-provider contract the host programs against.
// Session data is opaque JSON owned by the provider implementation; the
// host stores it verbatim and hands it back on every call. Every lifecycle
// method returns a provider-normalized error on failure, never a raw
// transport error.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// InitiatePayment creates the provider-side payment and returns its
	// snapshot as session data.
	InitiatePayment(ctx context.Context, req InitiateRequest) (json.RawMessage, error)

	// GetPaymentStatus fetches the current provider state and maps it to a
	// session status.
	GetPaymentStatus(ctx context.Context, data json.RawMessage) (session.Status, error)

	// AuthorizePayment returns the fresh snapshot together with its status.
	AuthorizePayment(ctx context.Context, data json.RawMessage) (*AuthorizeResult, error)

	// CapturePayment captures previously authorized funds.
	CapturePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

	// CancelPayment cancels the payment, refunding captured funds when a
	// plain void is no longer possible.
	CancelPayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

	// DeletePayment releases provider-side resources for the session, if any.
	DeletePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

	// RefundPayment refunds part or all of a captured payment.
	RefundPayment(ctx context.Context, data json.RawMessage, amount float64) (json.RawMessage, error)

	// RetrievePayment fetches the freshest provider snapshot.
	RetrievePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

	// UpdatePayment changes the payment amount, degrading to a re-initiation
	// when the provider rejects in-place mutation.
	UpdatePayment(ctx context.Context, req UpdateRequest) (json.RawMessage, error)

	// UpdatePaymentData applies a generic data update. Amount changes must
	// go through UpdatePayment and are rejected here.
	UpdatePaymentData(ctx context.Context, sessionID string, data map[string]any) (map[string]any, error)

	// VerifyWebhook checks an inbound webhook signature.
	VerifyWebhook(ctx context.Context, req WebhookVerifyRequest) (bool, error)

	// GetWebhookActionAndData interprets an inbound webhook payload.
	GetWebhookActionAndData(ctx context.Context, payload []byte) (*WebhookResult, error)
}
