package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements Client with overridable behavior and per-method
// call counters.
type mockClient struct {
	calls map[string]int

	createOrderFn   func(req CreateOrderRequest) (*Order, error)
	getOrderFn      func(orderID string) (*Order, error)
	patchOrderFn    func(orderID string, ops []PatchOp) error
	captureFn       func(authorizationID string) (*Capture, error)
	cancelFn        func(authorizationID string) error
	refundFn        func(captureID string, req *RefundRequest) (*Refund, error)
	getAuthFn       func(authorizationID string) (*Authorization, error)
	verifyWebhookFn func(req VerifyWebhookRequest) (bool, error)
}

func newMockClient() *mockClient {
	return &mockClient{calls: make(map[string]int)}
}

func (m *mockClient) CreateOrder(_ context.Context, req CreateOrderRequest) (*Order, error) {
	m.calls["CreateOrder"]++
	if m.createOrderFn != nil {
		return m.createOrderFn(req)
	}
	return nil, errors.New("CreateOrder not stubbed")
}

func (m *mockClient) GetOrder(_ context.Context, orderID string) (*Order, error) {
	m.calls["GetOrder"]++
	if m.getOrderFn != nil {
		return m.getOrderFn(orderID)
	}
	return nil, errors.New("GetOrder not stubbed")
}

func (m *mockClient) PatchOrder(_ context.Context, orderID string, ops []PatchOp) error {
	m.calls["PatchOrder"]++
	if m.patchOrderFn != nil {
		return m.patchOrderFn(orderID, ops)
	}
	return errors.New("PatchOrder not stubbed")
}

func (m *mockClient) CaptureAuthorizedPayment(_ context.Context, authorizationID string) (*Capture, error) {
	m.calls["CaptureAuthorizedPayment"]++
	if m.captureFn != nil {
		return m.captureFn(authorizationID)
	}
	return nil, errors.New("CaptureAuthorizedPayment not stubbed")
}

func (m *mockClient) CancelAuthorizedPayment(_ context.Context, authorizationID string) error {
	m.calls["CancelAuthorizedPayment"]++
	if m.cancelFn != nil {
		return m.cancelFn(authorizationID)
	}
	return errors.New("CancelAuthorizedPayment not stubbed")
}

func (m *mockClient) RefundPayment(_ context.Context, captureID string, req *RefundRequest) (*Refund, error) {
	m.calls["RefundPayment"]++
	if m.refundFn != nil {
		return m.refundFn(captureID, req)
	}
	return nil, errors.New("RefundPayment not stubbed")
}

func (m *mockClient) GetAuthorizationPayment(_ context.Context, authorizationID string) (*Authorization, error) {
	m.calls["GetAuthorizationPayment"]++
	if m.getAuthFn != nil {
		return m.getAuthFn(authorizationID)
	}
	return nil, errors.New("GetAuthorizationPayment not stubbed")
}

func (m *mockClient) VerifyWebhookSignature(_ context.Context, req VerifyWebhookRequest) (bool, error) {
	m.calls["VerifyWebhookSignature"]++
	if m.verifyWebhookFn != nil {
		return m.verifyWebhookFn(req)
	}
	return false, errors.New("VerifyWebhookSignature not stubbed")
}

func newTestProvider(t *testing.T, cfg Config, client Client) *Provider {
	t.Helper()
	if cfg.ClientID == "" {
		cfg.ClientID = "client-id"
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = "client-secret"
	}
	p, err := New(cfg, client, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func orderWithPayments(payments *PaymentCollection) *Order {
	return &Order{
		ID:     "ORDER-1",
		Status: OrderStatusApproved,
		PurchaseUnits: []PurchaseUnit{{
			ReferenceID: "default",
			CustomID:    "s1",
			Amount:      Money{CurrencyCode: "USD", Value: "10.00"},
			Payments:    payments,
		}},
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(Config{}, newMockClient(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clientId is required")
	assert.Contains(t, err.Error(), "clientSecret is required")
}

func TestNew_WebhookIDSpellings(t *testing.T) {
	assert.Equal(t, "primary", Config{AuthWebhookID: "primary", AuthWebhookIDAlias: "legacy"}.WebhookID())
	assert.Equal(t, "legacy", Config{AuthWebhookIDAlias: "legacy"}.WebhookID())
}

func TestInitiatePayment_AuthorizeIntent(t *testing.T) {
	client := newMockClient()
	var got CreateOrderRequest
	client.createOrderFn = func(req CreateOrderRequest) (*Order, error) {
		got = req
		return &Order{ID: "ORDER-1", Status: OrderStatusCreated, PurchaseUnits: req.PurchaseUnits}, nil
	}
	p := newTestProvider(t, Config{Capture: false}, client)

	data, err := p.InitiatePayment(context.Background(), provider.InitiateRequest{
		SessionID: "s1",
		Amount:    10,
		Currency:  "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, IntentAuthorize, got.Intent)
	require.Len(t, got.PurchaseUnits, 1)
	assert.Equal(t, "s1", got.PurchaseUnits[0].CustomID)
	assert.Equal(t, Money{CurrencyCode: "USD", Value: "10.00"}, got.PurchaseUnits[0].Amount)

	order, err := decodeOrder(data)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
}

func TestInitiatePayment_CaptureIntent(t *testing.T) {
	client := newMockClient()
	var got CreateOrderRequest
	client.createOrderFn = func(req CreateOrderRequest) (*Order, error) {
		got = req
		return &Order{ID: "ORDER-1"}, nil
	}
	p := newTestProvider(t, Config{Capture: true}, client)

	_, err := p.InitiatePayment(context.Background(), provider.InitiateRequest{
		SessionID: "s1", Amount: 100, Currency: "JPY",
	})
	require.NoError(t, err)
	assert.Equal(t, IntentCapture, got.Intent)
	assert.Equal(t, "100", got.PurchaseUnits[0].Amount.Value)
}

func TestInitiatePayment_UnsupportedCurrency(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	_, err := p.InitiatePayment(context.Background(), provider.InitiateRequest{
		SessionID: "s1", Amount: 10, Currency: "XYZ",
	})
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "unsupported_currency", norm.Code)
	assert.Zero(t, client.calls["CreateOrder"])
}

func TestInitiatePayment_RemoteFailure(t *testing.T) {
	client := newMockClient()
	client.createOrderFn = func(CreateOrderRequest) (*Order, error) {
		return nil, &APIError{StatusCode: 422, Name: "UNPROCESSABLE_ENTITY", Message: "order rejected"}
	}
	p := newTestProvider(t, Config{}, client)

	_, err := p.InitiatePayment(context.Background(), provider.InitiateRequest{
		SessionID: "s1", Amount: 10, Currency: "USD",
	})
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "UNPROCESSABLE_ENTITY", norm.Code)
	assert.Contains(t, norm.Detail, "order rejected")
}

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		remote OrderStatus
		want   session.Status
	}{
		{OrderStatusCreated, session.StatusPending},
		{OrderStatusSaved, session.StatusRequiresMore},
		{OrderStatusApproved, session.StatusRequiresMore},
		{OrderStatusPayerActionRequired, session.StatusRequiresMore},
		{OrderStatusVoided, session.StatusCanceled},
		{OrderStatusCompleted, session.StatusAuthorized},
		{OrderStatus("SOMETHING_NEW"), session.StatusPending},
	}
	for _, tt := range tests {
		t.Run(string(tt.remote), func(t *testing.T) {
			assert.Equal(t, tt.want, MapOrderStatus(tt.remote))
		})
	}
}

func TestGetPaymentStatus_FetchesFreshOrder(t *testing.T) {
	client := newMockClient()
	client.getOrderFn = func(orderID string) (*Order, error) {
		assert.Equal(t, "ORDER-1", orderID)
		return &Order{ID: "ORDER-1", Status: OrderStatusCompleted}, nil
	}
	p := newTestProvider(t, Config{}, client)

	// The stored snapshot is stale on purpose; the fresh retrieval wins.
	data := mustMarshal(t, &Order{ID: "ORDER-1", Status: OrderStatusCreated})
	status, err := p.GetPaymentStatus(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAuthorized, status)
}

func TestAuthorizePayment(t *testing.T) {
	client := newMockClient()
	client.getOrderFn = func(string) (*Order, error) {
		return &Order{ID: "ORDER-1", Status: OrderStatusCompleted}, nil
	}
	p := newTestProvider(t, Config{}, client)

	res, err := p.AuthorizePayment(context.Background(), mustMarshal(t, &Order{ID: "ORDER-1"}))
	require.NoError(t, err)
	assert.Equal(t, session.StatusAuthorized, res.Status)

	order, err := decodeOrder(res.Data)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestAuthorizePayment_NoPartialSuccess(t *testing.T) {
	client := newMockClient()
	client.getOrderFn = func(string) (*Order, error) {
		return nil, &APIError{StatusCode: 503, Name: "SERVICE_UNAVAILABLE", Message: "down"}
	}
	p := newTestProvider(t, Config{}, client)

	res, err := p.AuthorizePayment(context.Background(), mustMarshal(t, &Order{ID: "ORDER-1"}))
	assert.Nil(t, res)
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
}

func TestCancelPayment_AlreadyVoided(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, &Order{ID: "ORDER-1", Status: OrderStatusVoided})
	out, err := p.CancelPayment(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(data), out)
	assert.Empty(t, client.calls)
}

func TestCancelPayment_CompletedAndRefunded(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, &Order{ID: "ORDER-1", Status: OrderStatusCompleted, InvoiceID: "INV-1"})
	out, err := p.CancelPayment(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(data), out)
	assert.Empty(t, client.calls)
}

func TestCancelPayment_RefundsCapture(t *testing.T) {
	client := newMockClient()
	var refundedCapture string
	client.refundFn = func(captureID string, req *RefundRequest) (*Refund, error) {
		refundedCapture = captureID
		assert.Nil(t, req) // full refund
		return &Refund{ID: "REFUND-1"}, nil
	}
	client.getOrderFn = func(string) (*Order, error) {
		return &Order{ID: "ORDER-1", Status: OrderStatusCompleted}, nil
	}
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, orderWithPayments(&PaymentCollection{
		Authorizations: []Authorization{{ID: "AUTH-1"}},
		Captures:       []Capture{{ID: "CAP-1"}},
	}))
	_, err := p.CancelPayment(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, "CAP-1", refundedCapture)
	assert.Zero(t, client.calls["CancelAuthorizedPayment"])
	assert.Equal(t, 1, client.calls["RefundPayment"])
	assert.Equal(t, 1, client.calls["GetOrder"])
}

func TestCancelPayment_VoidsAuthorization(t *testing.T) {
	client := newMockClient()
	var voidedAuth string
	client.cancelFn = func(authorizationID string) error {
		voidedAuth = authorizationID
		return nil
	}
	client.getOrderFn = func(string) (*Order, error) {
		return &Order{ID: "ORDER-1", Status: OrderStatusVoided}, nil
	}
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, orderWithPayments(&PaymentCollection{
		Authorizations: []Authorization{{ID: "AUTH-1"}},
	}))
	out, err := p.CancelPayment(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, "AUTH-1", voidedAuth)
	assert.Zero(t, client.calls["RefundPayment"])

	order, err := decodeOrder(out)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusVoided, order.Status)
}

func TestCancelPayment_NothingToCancel(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, orderWithPayments(nil))
	_, err := p.CancelPayment(context.Background(), data)
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "no_authorization", norm.Code)
}

func TestCapturePayment(t *testing.T) {
	client := newMockClient()
	var capturedAuth string
	client.captureFn = func(authorizationID string) (*Capture, error) {
		capturedAuth = authorizationID
		return &Capture{ID: "CAP-1"}, nil
	}
	client.getOrderFn = func(string) (*Order, error) {
		return orderWithPayments(&PaymentCollection{Captures: []Capture{{ID: "CAP-1"}}}), nil
	}
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, orderWithPayments(&PaymentCollection{
		Authorizations: []Authorization{{ID: "AUTH-1"}},
	}))
	out, err := p.CapturePayment(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "AUTH-1", capturedAuth)

	order, err := decodeOrder(out)
	require.NoError(t, err)
	assert.Equal(t, "CAP-1", order.PurchaseUnits[0].Payments.Captures[0].ID)
}

func TestCapturePayment_AlreadyCapturedSurfacesRemoteError(t *testing.T) {
	client := newMockClient()
	client.captureFn = func(string) (*Capture, error) {
		return nil, &APIError{
			StatusCode: 422,
			Name:       "UNPROCESSABLE_ENTITY",
			Message:    "authorization has been previously captured",
		}
	}
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, orderWithPayments(&PaymentCollection{
		Authorizations: []Authorization{{ID: "AUTH-1"}},
	}))
	_, err := p.CapturePayment(context.Background(), data)
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "UNPROCESSABLE_ENTITY", norm.Code)
	assert.Contains(t, norm.Detail, "previously captured")
}

func TestDeletePayment_Passthrough(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, &Order{ID: "ORDER-1"})
	out, err := p.DeletePayment(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(data), out)
	assert.Empty(t, client.calls)
}

func TestRefundPayment_NoCapture(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	data := mustMarshal(t, orderWithPayments(&PaymentCollection{
		Authorizations: []Authorization{{ID: "AUTH-1"}},
	}))
	_, err := p.RefundPayment(context.Background(), data, 5)
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "uncaptured_refund", norm.Code)
	assert.Empty(t, client.calls)
}

func TestRefundPayment_PartialRefundInUnitCurrency(t *testing.T) {
	client := newMockClient()
	var gotCapture string
	var gotReq *RefundRequest
	client.refundFn = func(captureID string, req *RefundRequest) (*Refund, error) {
		gotCapture = captureID
		gotReq = req
		return &Refund{ID: "REFUND-1"}, nil
	}
	client.getOrderFn = func(string) (*Order, error) {
		return &Order{ID: "ORDER-1", Status: OrderStatusCompleted}, nil
	}
	p := newTestProvider(t, Config{}, client)

	order := orderWithPayments(&PaymentCollection{Captures: []Capture{{ID: "CAP-1"}}})
	order.PurchaseUnits[0].Amount = Money{CurrencyCode: "JPY", Value: "1000"}
	_, err := p.RefundPayment(context.Background(), mustMarshal(t, order), 250)
	require.NoError(t, err)

	assert.Equal(t, "CAP-1", gotCapture)
	require.NotNil(t, gotReq)
	require.NotNil(t, gotReq.Amount)
	assert.Equal(t, Money{CurrencyCode: "JPY", Value: "250"}, *gotReq.Amount)
}

func TestRetrievePayment_ReturnsErrorOnFailure(t *testing.T) {
	client := newMockClient()
	client.getOrderFn = func(string) (*Order, error) {
		return nil, &APIError{StatusCode: 404, Name: "RESOURCE_NOT_FOUND", Message: "no such order"}
	}
	p := newTestProvider(t, Config{}, client)

	out, err := p.RetrievePayment(context.Background(), mustMarshal(t, &Order{ID: "ORDER-1"}))
	assert.Nil(t, out)
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "RESOURCE_NOT_FOUND", norm.Code)
}

func TestUpdatePayment_PatchSucceeds(t *testing.T) {
	client := newMockClient()
	var gotOps []PatchOp
	client.patchOrderFn = func(orderID string, ops []PatchOp) error {
		assert.Equal(t, "ORDER-1", orderID)
		gotOps = ops
		return nil
	}
	client.getOrderFn = func(string) (*Order, error) {
		return &Order{ID: "ORDER-1", Status: OrderStatusCreated}, nil
	}
	p := newTestProvider(t, Config{}, client)

	_, err := p.UpdatePayment(context.Background(), provider.UpdateRequest{
		SessionID: "s1",
		Amount:    25.5,
		Currency:  "EUR",
		Data:      mustMarshal(t, &Order{ID: "ORDER-1"}),
	})
	require.NoError(t, err)

	require.Len(t, gotOps, 1)
	assert.Equal(t, "replace", gotOps[0].Op)
	assert.Equal(t, "/purchase_units/@reference_id=='default'/amount", gotOps[0].Path)
	assert.Equal(t, Money{CurrencyCode: "EUR", Value: "25.50"}, gotOps[0].Value)
	assert.Zero(t, client.calls["CreateOrder"])
}

func TestUpdatePayment_PatchFailsFallsBackToNewOrder(t *testing.T) {
	client := newMockClient()
	client.patchOrderFn = func(string, []PatchOp) error {
		return &APIError{StatusCode: 422, Name: "ORDER_ALREADY_APPROVED", Message: "cannot patch"}
	}
	client.createOrderFn = func(req CreateOrderRequest) (*Order, error) {
		return &Order{ID: "ORDER-2", PurchaseUnits: req.PurchaseUnits}, nil
	}
	p := newTestProvider(t, Config{}, client)

	out, err := p.UpdatePayment(context.Background(), provider.UpdateRequest{
		SessionID: "s1",
		Amount:    30,
		Currency:  "USD",
		Data:      mustMarshal(t, &Order{ID: "ORDER-1"}),
	})
	require.NoError(t, err)

	order, err := decodeOrder(out)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-2", order.ID)
	assert.Equal(t, "30.00", order.PurchaseUnits[0].Amount.Value)
}

func TestUpdatePayment_FallbackFailsWrapsPatchError(t *testing.T) {
	client := newMockClient()
	client.patchOrderFn = func(string, []PatchOp) error {
		return &APIError{StatusCode: 422, Name: "ORDER_ALREADY_APPROVED", Message: "cannot patch"}
	}
	client.createOrderFn = func(CreateOrderRequest) (*Order, error) {
		return nil, errors.New("create also failed")
	}
	p := newTestProvider(t, Config{}, client)

	_, err := p.UpdatePayment(context.Background(), provider.UpdateRequest{
		SessionID: "s1",
		Amount:    30,
		Currency:  "USD",
		Data:      mustMarshal(t, &Order{ID: "ORDER-1"}),
	})
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	// The original patch failure is the diagnostic, not the fallback error.
	assert.Equal(t, "ORDER_ALREADY_APPROVED", norm.Code)
	assert.Contains(t, norm.Detail, "cannot patch")
	assert.NotContains(t, norm.Detail, "create also failed")
}

func TestUpdatePaymentData_RejectsAmount(t *testing.T) {
	p := newTestProvider(t, Config{}, newMockClient())

	_, err := p.UpdatePaymentData(context.Background(), "s1", map[string]any{"amount": 10})
	var norm *NormalizedError
	require.ErrorAs(t, err, &norm)
	assert.Equal(t, "invalid_data_update", norm.Code)
}

func TestUpdatePaymentData_Passthrough(t *testing.T) {
	p := newTestProvider(t, Config{}, newMockClient())

	in := map[string]any{"note": "gift wrap", "reference": "abc"}
	out, err := p.UpdatePaymentData(context.Background(), "s1", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRetrieveOrderFromAuthorization(t *testing.T) {
	client := newMockClient()
	client.getOrderFn = func(orderID string) (*Order, error) {
		assert.Equal(t, "ORDER-9", orderID)
		return &Order{ID: "ORDER-9"}, nil
	}
	p := newTestProvider(t, Config{}, client)

	auth := &Authorization{ID: "AUTH-1", Links: []Link{
		{Href: "https://api-m.paypal.com/v2/payments/authorizations/AUTH-1", Rel: "self"},
		{Href: "https://api-m.paypal.com/v2/checkout/orders/ORDER-9", Rel: "up"},
	}}
	order, err := p.RetrieveOrderFromAuthorization(context.Background(), auth)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "ORDER-9", order.ID)
}

func TestRetrieveOrderFromAuthorization_NoUpLink(t *testing.T) {
	client := newMockClient()
	p := newTestProvider(t, Config{}, client)

	order, err := p.RetrieveOrderFromAuthorization(context.Background(), &Authorization{ID: "AUTH-1"})
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Empty(t, client.calls)
}

func TestVerifyWebhook_InjectsConfiguredWebhookID(t *testing.T) {
	client := newMockClient()
	var got VerifyWebhookRequest
	client.verifyWebhookFn = func(req VerifyWebhookRequest) (bool, error) {
		got = req
		return true, nil
	}
	p := newTestProvider(t, Config{AuthWebhookIDAlias: "WH-42"}, client)

	ok, err := p.VerifyWebhook(context.Background(), provider.WebhookVerifyRequest{
		AuthAlgo:        "SHA256withRSA",
		TransmissionID:  "tid",
		TransmissionSig: "sig",
		Event:           json.RawMessage(`{"id":"WH-EVT-1"}`),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "WH-42", got.WebhookID)
	assert.Equal(t, "tid", got.TransmissionID)
}
