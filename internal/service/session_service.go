package service

import (
	"context"
	"time"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/infrastructure/observability"
	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookPublisher enqueues interpreted webhook actions for asynchronous
// application by the worker.
type WebhookPublisher interface {
	PublishWebhookAction(ctx context.Context, sessionID, action string, amount float64, currency string, payload []byte) error
}

// SessionIDResolver extracts the host session id a webhook payload
// correlates to. Provider-specific, injected at wiring time.
type SessionIDResolver func(payload []byte) (string, error)

// SessionService drives payment sessions through their lifecycle against
// the configured provider. Provider calls are never retried here: the
// caller decides whether and when to try again.
type SessionService struct {
	repo      session.Repository
	prov      provider.Provider
	publisher WebhookPublisher
	resolveID SessionIDResolver
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	repo session.Repository,
	prov provider.Provider,
	publisher WebhookPublisher,
	resolveID SessionIDResolver,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		repo:      repo,
		prov:      prov,
		publisher: publisher,
		resolveID: resolveID,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateSession creates a session and initiates the provider-side payment.
// The provider call happens before the insert so a failed initiation never
// leaves a half-created session behind.
func (s *SessionService) CreateSession(ctx context.Context, amount float64, currency string) (*session.PaymentSession, error) {
	sess, err := session.New(amount, currency)
	if err != nil {
		return nil, err
	}

	data, err := s.prov.InitiatePayment(ctx, provider.InitiateRequest{
		SessionID: sess.ID.String(),
		Amount:    amount,
		Currency:  currency,
	})
	if err != nil {
		s.metrics.SessionOperations.WithLabelValues("create", "error").Inc()
		return nil, err
	}
	sess.Data = data

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.SessionsTotal.WithLabelValues(sess.Currency).Inc()
	s.metrics.SessionOperations.WithLabelValues("create", "ok").Inc()
	s.metrics.ActiveSessions.Inc()
	s.logger.Info().Str("session_id", sess.ID.String()).
		Float64("amount", amount).Str("currency", sess.Currency).
		Msg("payment session created")

	return sess, nil
}

// GetSession retrieves a session from storage. When refresh is true the
// provider is consulted for the freshest snapshot and status first.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID, refresh bool) (*session.PaymentSession, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !refresh {
		return sess, nil
	}

	data, err := s.prov.RetrievePayment(ctx, sess.Data)
	if err != nil {
		return nil, err
	}
	status, err := s.prov.GetPaymentStatus(ctx, data)
	if err != nil {
		return nil, err
	}

	sess.Data = data
	sess.ApplyProviderStatus(status)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions lists sessions with filters.
func (s *SessionService) ListSessions(ctx context.Context, filter session.ListFilter) ([]*session.PaymentSession, error) {
	return s.repo.List(ctx, filter)
}

// Authorize syncs the session with the provider's authorization state.
// On provider failure nothing is persisted.
func (s *SessionService) Authorize(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error) {
	return s.lifecycleOp(ctx, id, "authorize", func(ctx context.Context, sess *session.PaymentSession) error {
		res, err := s.prov.AuthorizePayment(ctx, sess.Data)
		if err != nil {
			return err
		}
		sess.Data = res.Data
		sess.ApplyProviderStatus(res.Status)
		return nil
	})
}

// Capture captures previously authorized funds.
func (s *SessionService) Capture(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error) {
	return s.lifecycleOp(ctx, id, "capture", func(ctx context.Context, sess *session.PaymentSession) error {
		data, err := s.prov.CapturePayment(ctx, sess.Data)
		if err != nil {
			return err
		}
		sess.Data = data
		sess.ApplyProviderStatus(session.StatusCaptured)
		return nil
	})
}

// Cancel cancels the session, refunding captured funds when a plain void
// is no longer possible on the provider side.
func (s *SessionService) Cancel(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error) {
	sess, err := s.lifecycleOp(ctx, id, "cancel", func(ctx context.Context, sess *session.PaymentSession) error {
		data, err := s.prov.CancelPayment(ctx, sess.Data)
		if err != nil {
			return err
		}
		sess.Data = data
		sess.ApplyProviderStatus(session.StatusCanceled)
		return nil
	})
	if err == nil {
		s.metrics.ActiveSessions.Dec()
	}
	return sess, err
}

// Refund refunds part or all of the captured amount. The session status
// is left as is; a full refund arrives later as a webhook or a cancel.
func (s *SessionService) Refund(ctx context.Context, id uuid.UUID, amount float64) (*session.PaymentSession, error) {
	return s.lifecycleOp(ctx, id, "refund", func(ctx context.Context, sess *session.PaymentSession) error {
		data, err := s.prov.RefundPayment(ctx, sess.Data, amount)
		if err != nil {
			return err
		}
		sess.Data = data
		sess.UpdatedAt = time.Now()
		return nil
	})
}

// UpdateAmount changes the session amount, letting the provider patch or
// re-initiate its side as needed.
func (s *SessionService) UpdateAmount(ctx context.Context, id uuid.UUID, amount float64, currency string) (*session.PaymentSession, error) {
	if amount <= 0 {
		return nil, domainErrors.NewValidationError("amount", "must be greater than 0")
	}
	return s.lifecycleOp(ctx, id, "update_amount", func(ctx context.Context, sess *session.PaymentSession) error {
		if currency == "" {
			currency = sess.Currency
		}
		data, err := s.prov.UpdatePayment(ctx, provider.UpdateRequest{
			SessionID: sess.ID.String(),
			Amount:    amount,
			Currency:  currency,
			Data:      sess.Data,
		})
		if err != nil {
			return err
		}
		sess.Amount = amount
		sess.Currency = currency
		sess.Data = data
		sess.UpdatedAt = time.Now()
		return nil
	})
}

// UpdateData merges generic metadata into the session after the provider
// sanitizes it. Amount changes must go through UpdateAmount.
func (s *SessionService) UpdateData(ctx context.Context, id uuid.UUID, updates map[string]any) (*session.PaymentSession, error) {
	return s.lifecycleOp(ctx, id, "update_data", func(ctx context.Context, sess *session.PaymentSession) error {
		sanitized, err := s.prov.UpdatePaymentData(ctx, sess.ID.String(), updates)
		if err != nil {
			return err
		}
		if sess.Metadata == nil {
			sess.Metadata = make(map[string]any)
		}
		for k, v := range sanitized {
			sess.Metadata[k] = v
		}
		sess.UpdatedAt = time.Now()
		return nil
	})
}

// DeleteSession releases provider-side resources and removes the session.
func (s *SessionService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.prov.DeletePayment(ctx, sess.Data); err != nil {
		s.metrics.SessionOperations.WithLabelValues("delete", "error").Inc()
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.SessionOperations.WithLabelValues("delete", "ok").Inc()
	if !sess.IsTerminal() {
		s.metrics.ActiveSessions.Dec()
	}
	return nil
}

// HandleWebhook verifies an inbound webhook, interprets it, and enqueues
// the resulting action for the worker. Unsupported events are accepted
// and dropped so the provider stops redelivering them.
func (s *SessionService) HandleWebhook(ctx context.Context, req provider.WebhookVerifyRequest) (*provider.WebhookResult, error) {
	ok, err := s.prov.VerifyWebhook(ctx, req)
	if err != nil {
		s.metrics.WebhooksRejected.WithLabelValues("verify_error").Inc()
		return nil, err
	}
	if !ok {
		s.metrics.WebhooksRejected.WithLabelValues("bad_signature").Inc()
		return nil, domainErrors.ErrWebhookVerification
	}

	res, err := s.prov.GetWebhookActionAndData(ctx, req.Event)
	if err != nil {
		s.metrics.WebhooksRejected.WithLabelValues("uninterpretable").Inc()
		return nil, err
	}
	s.metrics.WebhooksReceived.WithLabelValues(string(res.Action)).Inc()

	if res.Action == provider.WebhookActionNotSupported {
		s.logger.Debug().Msg("unsupported webhook event dropped")
		return res, nil
	}

	hostID, err := s.resolveID(req.Event)
	if err != nil {
		s.metrics.WebhooksRejected.WithLabelValues("no_session_ref").Inc()
		return nil, err
	}

	if err := s.publisher.PublishWebhookAction(ctx, hostID, string(res.Action), res.Amount, res.Currency, req.Event); err != nil {
		return nil, err
	}

	s.logger.Info().Str("session_id", hostID).
		Str("action", string(res.Action)).
		Msg("webhook action enqueued")
	return res, nil
}

// lifecycleOp loads a session, rejects terminal ones, applies fn, and
// persists the result. fn mutates the session only on success.
func (s *SessionService) lifecycleOp(
	ctx context.Context,
	id uuid.UUID,
	operation string,
	fn func(ctx context.Context, sess *session.PaymentSession) error,
) (*session.PaymentSession, error) {
	start := time.Now()
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsTerminal() {
		s.metrics.SessionOperations.WithLabelValues(operation, "rejected").Inc()
		return nil, domainErrors.ErrSessionTerminal
	}

	if err := fn(ctx, sess); err != nil {
		s.metrics.SessionOperations.WithLabelValues(operation, "error").Inc()
		return nil, err
	}

	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.SessionOperations.WithLabelValues(operation, "ok").Inc()
	s.metrics.SessionOperationTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return sess, nil
}
