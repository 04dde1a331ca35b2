package paypal

import "encoding/json"

// OrderIntent selects whether an order captures funds immediately or only
// authorizes them.
type OrderIntent string

const (
	IntentCapture   OrderIntent = "CAPTURE"
	IntentAuthorize OrderIntent = "AUTHORIZE"
)

// OrderStatus is the PayPal order state machine.
type OrderStatus string

const (
	OrderStatusCreated             OrderStatus = "CREATED"
	OrderStatusSaved               OrderStatus = "SAVED"
	OrderStatusApproved            OrderStatus = "APPROVED"
	OrderStatusPayerActionRequired OrderStatus = "PAYER_ACTION_REQUIRED"
	OrderStatusVoided              OrderStatus = "VOIDED"
	OrderStatusCompleted           OrderStatus = "COMPLETED"
)

// Money is the amount object of the Orders API: a fixed-point decimal
// rendered as a string plus an ISO currency code.
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Link is a HATEOAS link attached to API resources.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Authorization represents an authorized payment against an order.
type Authorization struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Amount *Money `json:"amount,omitempty"`
	Links  []Link `json:"links,omitempty"`
}

// Capture represents captured funds against an order.
type Capture struct {
	ID        string `json:"id"`
	Status    string `json:"status,omitempty"`
	Amount    *Money `json:"amount,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Links     []Link `json:"links,omitempty"`
}

// Refund represents a refund issued against a capture.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Amount *Money `json:"amount,omitempty"`
	Links  []Link `json:"links,omitempty"`
}

// PaymentCollection holds the payments recorded against a purchase unit.
// Both lists are append-only on the PayPal side; this adapter only ever
// reads their first element.
type PaymentCollection struct {
	Authorizations []Authorization `json:"authorizations,omitempty"`
	Captures       []Capture       `json:"captures,omitempty"`
}

// PurchaseUnit is one sellable unit of an order. CustomID correlates the
// unit back to the host session id.
type PurchaseUnit struct {
	ReferenceID string             `json:"reference_id,omitempty"`
	CustomID    string             `json:"custom_id,omitempty"`
	InvoiceID   string             `json:"invoice_id,omitempty"`
	Amount      Money              `json:"amount"`
	Payments    *PaymentCollection `json:"payments,omitempty"`
}

// Order is the PayPal Orders v2 order resource.
type Order struct {
	ID            string         `json:"id"`
	Intent        OrderIntent    `json:"intent,omitempty"`
	Status        OrderStatus    `json:"status,omitempty"`
	InvoiceID     string         `json:"invoice_id,omitempty"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
	Links         []Link         `json:"links,omitempty"`
}

// CreateOrderRequest is the body of POST /v2/checkout/orders.
type CreateOrderRequest struct {
	Intent        OrderIntent    `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// PatchOp is a JSON-Patch operation for PATCH /v2/checkout/orders/{id}.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// RefundRequest is the body of POST /v2/payments/captures/{id}/refund.
// A nil Amount refunds the full capture.
type RefundRequest struct {
	Amount      *Money `json:"amount,omitempty"`
	InvoiceID   string `json:"invoice_id,omitempty"`
	NoteToPayer string `json:"note_to_payer,omitempty"`
}

// WebhookEvent is the envelope PayPal posts to webhook listeners. The
// resource layout depends on EventType; for the events this adapter
// handles it is order-shaped.
type WebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Resource     json.RawMessage `json:"resource"`
	CreateTime   string          `json:"create_time,omitempty"`
}

// VerifyWebhookRequest is the body of
// POST /v1/notifications/verify-webhook-signature.
type VerifyWebhookRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}
