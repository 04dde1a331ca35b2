package paypal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commercegate/paypal-sessions/internal/provider"
)

// Webhook event names this adapter acts on. Everything else maps to
// not_supported.
const (
	EventAuthorizationCreated = "PAYMENT.AUTHORIZATION.CREATED"
	EventCaptureCompleted     = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureDenied        = "PAYMENT.CAPTURE.DENIED"
)

// GetWebhookActionAndData discriminates on the envelope's event_type and
// extracts the resource ids and amount from the order-shaped resource.
// The session id of the result is the provider resource id the event is
// about: the authorization id for an authorization event, the capture id
// for capture events (falling back to the authorization id when a denied
// capture carries none).
func (p *Provider) GetWebhookActionAndData(_ context.Context, payload []byte) (*provider.WebhookResult, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, buildError("failed to interpret webhook", fmt.Errorf("decode webhook envelope: %w", err))
	}

	action := mapEventType(event.EventType)
	if action == provider.WebhookActionNotSupported {
		return &provider.WebhookResult{Action: provider.WebhookActionNotSupported}, nil
	}

	var order Order
	if err := json.Unmarshal(event.Resource, &order); err != nil {
		return nil, buildError("failed to interpret webhook", fmt.Errorf("decode webhook resource: %w", err))
	}
	unit, err := firstPurchaseUnit(&order)
	if err != nil {
		return nil, buildError("failed to interpret webhook", err)
	}

	var authorizationID, captureID string
	if unit.Payments != nil {
		if len(unit.Payments.Authorizations) > 0 {
			authorizationID = unit.Payments.Authorizations[0].ID
		}
		if len(unit.Payments.Captures) > 0 {
			captureID = unit.Payments.Captures[0].ID
		}
	}

	result := &provider.WebhookResult{
		Action:   action,
		Amount:   parseAmount(unit.Amount.Value),
		Currency: unit.Amount.CurrencyCode,
	}
	switch action {
	case provider.WebhookActionAuthorized:
		result.SessionID = authorizationID
	case provider.WebhookActionSuccessful:
		result.SessionID = captureID
	case provider.WebhookActionFailed:
		result.SessionID = captureID
		if result.SessionID == "" {
			result.SessionID = authorizationID
		}
	}
	return result, nil
}

func mapEventType(eventType string) provider.WebhookAction {
	switch eventType {
	case EventAuthorizationCreated:
		return provider.WebhookActionAuthorized
	case EventCaptureCompleted:
		return provider.WebhookActionSuccessful
	case EventCaptureDenied:
		return provider.WebhookActionFailed
	default:
		return provider.WebhookActionNotSupported
	}
}

// CustomIDFromEvent extracts the host session id the webhook's order
// resource was created with. Host-side resolution helper; the contract
// result itself carries provider resource ids.
func CustomIDFromEvent(payload []byte) (string, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", fmt.Errorf("decode webhook envelope: %w", err)
	}
	var order Order
	if err := json.Unmarshal(event.Resource, &order); err != nil {
		return "", fmt.Errorf("decode webhook resource: %w", err)
	}
	if len(order.PurchaseUnits) == 0 {
		return "", ErrNoPurchaseUnits
	}
	return order.PurchaseUnits[0].CustomID, nil
}
