package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/rs/zerolog"
)

// Config holds the adapter options. AuthWebhookID and AuthWebhookIDAlias
// are two historical spellings of the same option; the first non-empty
// one wins.
type Config struct {
	ClientID           string
	ClientSecret       string
	Sandbox            bool
	Capture            bool
	AuthWebhookID      string
	AuthWebhookIDAlias string
}

// WebhookID resolves the configured webhook identifier.
func (c Config) WebhookID() string {
	if c.AuthWebhookID != "" {
		return c.AuthWebhookID
	}
	return c.AuthWebhookIDAlias
}

// Provider maps the generic payment-provider contract onto the PayPal
// Orders v2 API. It is stateless beyond its immutable configuration and
// never retries: one host event maps to a short, strictly sequential
// chain of 1-3 remote calls, and the first failure anywhere in the chain
// aborts it with a single normalized error.
type Provider struct {
	client    Client
	intent    OrderIntent
	webhookID string
	logger    zerolog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New constructs the adapter. Missing credentials are a construction
// error: the adapter cannot be built without them.
func New(cfg Config, client Client, logger zerolog.Logger) (*Provider, error) {
	var errs []error
	if cfg.ClientID == "" {
		errs = append(errs, errors.New("paypal: clientId is required"))
	}
	if cfg.ClientSecret == "" {
		errs = append(errs, errors.New("paypal: clientSecret is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	// The intent is chosen once from configuration, never per call.
	intent := IntentAuthorize
	if cfg.Capture {
		intent = IntentCapture
	}

	return &Provider{
		client:    client,
		intent:    intent,
		webhookID: cfg.WebhookID(),
		logger:    logger,
	}, nil
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return "paypal" }

// InitiatePayment creates a PayPal order with a single purchase unit
// carrying the formatted amount and the host session id as custom_id.
func (p *Provider) InitiatePayment(ctx context.Context, req provider.InitiateRequest) (json.RawMessage, error) {
	money, err := FormatAmount(req.Amount, req.Currency)
	if err != nil {
		return nil, buildError("failed to create paypal order", err)
	}

	order, err := p.client.CreateOrder(ctx, CreateOrderRequest{
		Intent: p.intent,
		PurchaseUnits: []PurchaseUnit{{
			ReferenceID: "default",
			CustomID:    req.SessionID,
			Amount:      money,
		}},
	})
	if err != nil {
		return nil, buildError("failed to create paypal order", err)
	}
	return marshalOrder(order)
}

// GetPaymentStatus fetches the current order and maps its status. The
// mapping is intentionally lossy: PayPal may introduce new statuses, so
// anything unrecognized stays pending instead of failing.
func (p *Provider) GetPaymentStatus(ctx context.Context, data json.RawMessage) (session.Status, error) {
	order, err := decodeOrder(data)
	if err != nil {
		return "", buildError("failed to get payment status", err)
	}
	fresh, err := p.client.GetOrder(ctx, order.ID)
	if err != nil {
		return "", buildError("failed to get payment status", err)
	}
	return MapOrderStatus(fresh.Status), nil
}

// MapOrderStatus maps a PayPal order status to a session status.
func MapOrderStatus(status OrderStatus) session.Status {
	switch status {
	case OrderStatusCreated:
		return session.StatusPending
	case OrderStatusSaved, OrderStatusApproved, OrderStatusPayerActionRequired:
		return session.StatusRequiresMore
	case OrderStatusVoided:
		return session.StatusCanceled
	case OrderStatusCompleted:
		return session.StatusAuthorized
	default:
		return session.StatusPending
	}
}

// AuthorizePayment returns the fresh order snapshot together with its
// mapped status. Any failure in either sub-call aborts the whole
// operation; there is no partial success.
func (p *Provider) AuthorizePayment(ctx context.Context, data json.RawMessage) (*provider.AuthorizeResult, error) {
	status, err := p.GetPaymentStatus(ctx, data)
	if err != nil {
		return nil, buildError("failed to authorize payment", err)
	}

	order, err := decodeOrder(data)
	if err != nil {
		return nil, buildError("failed to authorize payment", err)
	}
	fresh, err := p.client.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, buildError("failed to authorize payment", err)
	}
	raw, err := marshalOrder(fresh)
	if err != nil {
		return nil, err
	}
	return &provider.AuthorizeResult{Data: raw, Status: status}, nil
}

// CancelPayment cancels the order. Already-voided orders, and completed
// orders that were fully refunded (non-empty invoice_id), are returned
// unchanged without any remote call. Captured payments cannot be voided,
// so a capture is refunded instead; otherwise the first authorization is
// voided. The fresh order is re-retrieved after the mutation.
func (p *Provider) CancelPayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	order, err := decodeOrder(data)
	if err != nil {
		return nil, buildError("failed to cancel payment", err)
	}

	if order.Status == OrderStatusVoided ||
		(order.Status == OrderStatusCompleted && order.InvoiceID != "") {
		return data, nil
	}

	unit, err := firstPurchaseUnit(order)
	if err != nil {
		return nil, buildError("failed to cancel payment", err)
	}

	switch {
	case unit.Payments != nil && len(unit.Payments.Captures) > 0:
		// Full refund of the first capture stands in for a void.
		captureID := unit.Payments.Captures[0].ID
		if _, err := p.client.RefundPayment(ctx, captureID, nil); err != nil {
			return nil, buildError("failed to cancel payment", err)
		}
	case unit.Payments != nil && len(unit.Payments.Authorizations) > 0:
		authID := unit.Payments.Authorizations[0].ID
		if err := p.client.CancelAuthorizedPayment(ctx, authID); err != nil {
			return nil, buildError("failed to cancel payment", err)
		}
	default:
		return nil, buildError("failed to cancel payment", ErrNoAuthorization)
	}

	fresh, err := p.client.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, buildError("failed to cancel payment", err)
	}
	return marshalOrder(fresh)
}

// CapturePayment captures the first authorization of the first purchase
// unit. There is deliberately no idempotency short-circuit: capturing an
// already-captured authorization surfaces PayPal's own error, normalized.
func (p *Provider) CapturePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	order, err := decodeOrder(data)
	if err != nil {
		return nil, buildError("failed to capture payment", err)
	}
	unit, err := firstPurchaseUnit(order)
	if err != nil {
		return nil, buildError("failed to capture payment", err)
	}
	if unit.Payments == nil || len(unit.Payments.Authorizations) == 0 {
		return nil, buildError("failed to capture payment", ErrNoAuthorization)
	}

	authID := unit.Payments.Authorizations[0].ID
	if _, err := p.client.CaptureAuthorizedPayment(ctx, authID); err != nil {
		return nil, buildError("failed to capture payment", err)
	}

	fresh, err := p.client.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, buildError("failed to capture payment", err)
	}
	return marshalOrder(fresh)
}

// DeletePayment is a passthrough: PayPal has no delete concept for orders.
func (p *Provider) DeletePayment(_ context.Context, data json.RawMessage) (json.RawMessage, error) {
	return data, nil
}

// RefundPayment refunds part or all of the first capture, formatted in
// the purchase unit's own currency. An order without a capture fails
// before any remote call is made.
func (p *Provider) RefundPayment(ctx context.Context, data json.RawMessage, amount float64) (json.RawMessage, error) {
	order, err := decodeOrder(data)
	if err != nil {
		return nil, buildError("failed to refund payment", err)
	}
	unit, err := firstPurchaseUnit(order)
	if err != nil {
		return nil, buildError("failed to refund payment", err)
	}
	if unit.Payments == nil || len(unit.Payments.Captures) == 0 {
		return nil, buildError("failed to refund payment", ErrUncapturedRefund)
	}

	money, err := FormatAmount(amount, unit.Amount.CurrencyCode)
	if err != nil {
		return nil, buildError("failed to refund payment", err)
	}

	captureID := unit.Payments.Captures[0].ID
	if _, err := p.client.RefundPayment(ctx, captureID, &RefundRequest{Amount: &money}); err != nil {
		return nil, buildError("failed to refund payment", err)
	}

	fresh, err := p.client.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, buildError("failed to refund payment", err)
	}
	return marshalOrder(fresh)
}

// RetrievePayment fetches the freshest order snapshot.
func (p *Provider) RetrievePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	order, err := decodeOrder(data)
	if err != nil {
		return nil, buildError("failed to retrieve payment", err)
	}
	fresh, err := p.client.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, buildError("failed to retrieve payment", err)
	}
	return marshalOrder(fresh)
}

// UpdatePayment patches the amount of the default purchase unit in place.
// PayPal rejects amount patches once an order is approved, so any patch
// failure degrades to re-initiating a fresh order with the new amount.
// When the fallback fails too, the error returned wraps the original
// patch failure, which is the more useful diagnostic.
func (p *Provider) UpdatePayment(ctx context.Context, req provider.UpdateRequest) (json.RawMessage, error) {
	order, err := decodeOrder(req.Data)
	if err != nil {
		return nil, buildError("failed to update paypal order", err)
	}

	patchErr := func() error {
		money, err := FormatAmount(req.Amount, req.Currency)
		if err != nil {
			return err
		}
		return p.client.PatchOrder(ctx, order.ID, []PatchOp{{
			Op:    "replace",
			Path:  "/purchase_units/@reference_id=='default'/amount",
			Value: money,
		}})
	}()
	if patchErr == nil {
		fresh, err := p.client.GetOrder(ctx, order.ID)
		if err != nil {
			return nil, buildError("failed to update paypal order", err)
		}
		return marshalOrder(fresh)
	}

	p.logger.Debug().Err(patchErr).Str("order_id", order.ID).
		Msg("amount patch rejected, falling back to a new order")

	data, err := p.InitiatePayment(ctx, provider.InitiateRequest{
		SessionID: req.SessionID,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		return nil, buildError("failed to update paypal order", patchErr)
	}
	return data, nil
}

// UpdatePaymentData rejects amount changes smuggled through the generic
// data-update path; amount changes must go through UpdatePayment so the
// formatting and remote-patch logic applies. Everything else passes
// through unchanged.
func (p *Provider) UpdatePaymentData(_ context.Context, _ string, data map[string]any) (map[string]any, error) {
	if _, ok := data["amount"]; ok {
		return nil, buildError("failed to update payment data", ErrInvalidDataUpdate)
	}
	return data, nil
}

// RetrieveOrderFromAuthorization resolves the parent order of an
// authorization by following its "up" link. Returns nil when the
// authorization carries no such link.
func (p *Provider) RetrieveOrderFromAuthorization(ctx context.Context, auth *Authorization) (*Order, error) {
	var href string
	for _, link := range auth.Links {
		if link.Rel == "up" {
			href = link.Href
			break
		}
	}
	if href == "" {
		return nil, nil
	}

	orderID := href[strings.LastIndex(href, "/")+1:]
	order, err := p.client.GetOrder(ctx, orderID)
	if err != nil {
		return nil, buildError("failed to retrieve order from authorization", err)
	}
	return order, nil
}

// VerifyWebhook checks an inbound webhook signature, injecting the
// configured webhook id next to the caller-supplied transmission fields.
func (p *Provider) VerifyWebhook(ctx context.Context, req provider.WebhookVerifyRequest) (bool, error) {
	return p.client.VerifyWebhookSignature(ctx, VerifyWebhookRequest{
		AuthAlgo:         req.AuthAlgo,
		CertURL:          req.CertURL,
		TransmissionID:   req.TransmissionID,
		TransmissionSig:  req.TransmissionSig,
		TransmissionTime: req.TransmissionTime,
		WebhookID:        p.webhookID,
		WebhookEvent:     req.Event,
	})
}

// decodeOrder unmarshals opaque session data back into the typed order it
// was produced from.
func decodeOrder(data json.RawMessage) (*Order, error) {
	if len(data) == 0 {
		return nil, errors.New("empty session data")
	}
	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode session data: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("session data has no order id")
	}
	return &order, nil
}

func marshalOrder(order *Order) (json.RawMessage, error) {
	raw, err := json.Marshal(order)
	if err != nil {
		return nil, buildError("failed to encode paypal order", err)
	}
	return raw, nil
}

// firstPurchaseUnit returns the only purchase unit this adapter acts on.
// Orders created here always carry exactly one.
func firstPurchaseUnit(order *Order) (*PurchaseUnit, error) {
	if len(order.PurchaseUnits) == 0 {
		return nil, ErrNoPurchaseUnits
	}
	return &order.PurchaseUnits[0], nil
}

// parseAmount parses a Money value string back into a float.
func parseAmount(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
