package worker

import (
	"context"
	"testing"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/infrastructure/observability"
	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/commercegate/paypal-sessions/internal/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConsumer() (*WebhookConsumer, *testutil.MockSessionRepository) {
	repo := testutil.NewMockSessionRepository()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	c := NewWebhookConsumer(repo, nil, nil, nil, metrics, zerolog.Nop(), 0)
	return c, repo
}

func TestApply_Authorized(t *testing.T) {
	c, repo := setupConsumer()
	sess := testutil.NewTestSession(session.StatusPending)
	repo.AddSession(sess)

	require.NoError(t, c.Apply(context.Background(), sess.ID, provider.WebhookActionAuthorized))

	stored, err := repo.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAuthorized, stored.Status)
}

func TestApply_Successful(t *testing.T) {
	c, repo := setupConsumer()
	sess := testutil.NewTestSession(session.StatusAuthorized)
	repo.AddSession(sess)

	require.NoError(t, c.Apply(context.Background(), sess.ID, provider.WebhookActionSuccessful))

	stored, err := repo.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCaptured, stored.Status)
}

func TestApply_Failed(t *testing.T) {
	c, repo := setupConsumer()
	sess := testutil.NewTestSession(session.StatusPending)
	repo.AddSession(sess)

	require.NoError(t, c.Apply(context.Background(), sess.ID, provider.WebhookActionFailed))

	stored, err := repo.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusError, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "denied")
}

func TestApply_StaleActionDropped(t *testing.T) {
	c, repo := setupConsumer()
	// Canceled is terminal, so an authorized action is a stale redelivery.
	sess := testutil.NewTestSession(session.StatusCanceled)
	repo.AddSession(sess)

	require.NoError(t, c.Apply(context.Background(), sess.ID, provider.WebhookActionAuthorized))

	stored, err := repo.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCanceled, stored.Status)
}

func TestApply_SessionNotFound(t *testing.T) {
	c, _ := setupConsumer()

	err := c.Apply(context.Background(), uuid.New(), provider.WebhookActionAuthorized)
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestApply_UnexpectedAction(t *testing.T) {
	c, repo := setupConsumer()
	sess := testutil.NewTestSession(session.StatusPending)
	repo.AddSession(sess)

	err := c.Apply(context.Background(), sess.ID, provider.WebhookActionNotSupported)
	assert.Error(t, err)
}
