package testutil

import (
	"context"
	"encoding/json"
	"sync"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/google/uuid"
)

// --- Session Repository Mock ---

// MockSessionRepository is a mock implementation of session.Repository.
type MockSessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.PaymentSession

	CreateFunc  func(ctx context.Context, sess *session.PaymentSession) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error)
	UpdateFunc  func(ctx context.Context, sess *session.PaymentSession) error
	DeleteFunc  func(ctx context.Context, id uuid.UUID) error
	ListFunc    func(ctx context.Context, filter session.ListFilter) ([]*session.PaymentSession, error)
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[uuid.UUID]*session.PaymentSession),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, sess *session.PaymentSession) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sess)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MockSessionRepository) Update(ctx context.Context, sess *session.PaymentSession) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, sess)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; !ok {
		return domainErrors.ErrSessionNotFound
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domainErrors.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionRepository) List(ctx context.Context, filter session.ListFilter) ([]*session.PaymentSession, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*session.PaymentSession
	for _, sess := range m.sessions {
		if filter.Status != nil && sess.Status != *filter.Status {
			continue
		}
		if filter.Currency != nil && sess.Currency != *filter.Currency {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// AddSession seeds the repository with a session.
func (m *MockSessionRepository) AddSession(sess *session.PaymentSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
}

// --- Webhook Publisher Mock ---

// PublishedAction records one PublishWebhookAction call.
type PublishedAction struct {
	SessionID string
	Action    string
	Amount    float64
	Currency  string
	Payload   []byte
}

// MockWebhookPublisher records published webhook actions.
type MockWebhookPublisher struct {
	mu        sync.Mutex
	Published []PublishedAction

	PublishFunc func(ctx context.Context, sessionID, action string, amount float64, currency string, payload []byte) error
}

func (m *MockWebhookPublisher) PublishWebhookAction(ctx context.Context, sessionID, action string, amount float64, currency string, payload []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, sessionID, action, amount, currency, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedAction{
		SessionID: sessionID,
		Action:    action,
		Amount:    amount,
		Currency:  currency,
		Payload:   payload,
	})
	return nil
}

// --- Provider Mock ---

// MockProvider is a mock implementation of provider.Provider. Unset
// function fields fall back to benign defaults that echo input data.
type MockProvider struct {
	InitiatePaymentFunc         func(ctx context.Context, req provider.InitiateRequest) (json.RawMessage, error)
	GetPaymentStatusFunc        func(ctx context.Context, data json.RawMessage) (session.Status, error)
	AuthorizePaymentFunc        func(ctx context.Context, data json.RawMessage) (*provider.AuthorizeResult, error)
	CapturePaymentFunc          func(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
	CancelPaymentFunc           func(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
	DeletePaymentFunc           func(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
	RefundPaymentFunc           func(ctx context.Context, data json.RawMessage, amount float64) (json.RawMessage, error)
	RetrievePaymentFunc         func(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
	UpdatePaymentFunc           func(ctx context.Context, req provider.UpdateRequest) (json.RawMessage, error)
	UpdatePaymentDataFunc       func(ctx context.Context, sessionID string, data map[string]any) (map[string]any, error)
	VerifyWebhookFunc           func(ctx context.Context, req provider.WebhookVerifyRequest) (bool, error)
	GetWebhookActionAndDataFunc func(ctx context.Context, payload []byte) (*provider.WebhookResult, error)
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) InitiatePayment(ctx context.Context, req provider.InitiateRequest) (json.RawMessage, error) {
	if m.InitiatePaymentFunc != nil {
		return m.InitiatePaymentFunc(ctx, req)
	}
	return json.RawMessage(`{"id":"MOCK-ORDER"}`), nil
}

func (m *MockProvider) GetPaymentStatus(ctx context.Context, data json.RawMessage) (session.Status, error) {
	if m.GetPaymentStatusFunc != nil {
		return m.GetPaymentStatusFunc(ctx, data)
	}
	return session.StatusPending, nil
}

func (m *MockProvider) AuthorizePayment(ctx context.Context, data json.RawMessage) (*provider.AuthorizeResult, error) {
	if m.AuthorizePaymentFunc != nil {
		return m.AuthorizePaymentFunc(ctx, data)
	}
	return &provider.AuthorizeResult{Data: data, Status: session.StatusAuthorized}, nil
}

func (m *MockProvider) CapturePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	if m.CapturePaymentFunc != nil {
		return m.CapturePaymentFunc(ctx, data)
	}
	return data, nil
}

func (m *MockProvider) CancelPayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	if m.CancelPaymentFunc != nil {
		return m.CancelPaymentFunc(ctx, data)
	}
	return data, nil
}

func (m *MockProvider) DeletePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	if m.DeletePaymentFunc != nil {
		return m.DeletePaymentFunc(ctx, data)
	}
	return data, nil
}

func (m *MockProvider) RefundPayment(ctx context.Context, data json.RawMessage, amount float64) (json.RawMessage, error) {
	if m.RefundPaymentFunc != nil {
		return m.RefundPaymentFunc(ctx, data, amount)
	}
	return data, nil
}

func (m *MockProvider) RetrievePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	if m.RetrievePaymentFunc != nil {
		return m.RetrievePaymentFunc(ctx, data)
	}
	return data, nil
}

func (m *MockProvider) UpdatePayment(ctx context.Context, req provider.UpdateRequest) (json.RawMessage, error) {
	if m.UpdatePaymentFunc != nil {
		return m.UpdatePaymentFunc(ctx, req)
	}
	return req.Data, nil
}

func (m *MockProvider) UpdatePaymentData(ctx context.Context, sessionID string, data map[string]any) (map[string]any, error) {
	if m.UpdatePaymentDataFunc != nil {
		return m.UpdatePaymentDataFunc(ctx, sessionID, data)
	}
	return data, nil
}

func (m *MockProvider) VerifyWebhook(ctx context.Context, req provider.WebhookVerifyRequest) (bool, error) {
	if m.VerifyWebhookFunc != nil {
		return m.VerifyWebhookFunc(ctx, req)
	}
	return true, nil
}

func (m *MockProvider) GetWebhookActionAndData(ctx context.Context, payload []byte) (*provider.WebhookResult, error) {
	if m.GetWebhookActionAndDataFunc != nil {
		return m.GetWebhookActionAndDataFunc(ctx, payload)
	}
	return &provider.WebhookResult{Action: provider.WebhookActionNotSupported}, nil
}
