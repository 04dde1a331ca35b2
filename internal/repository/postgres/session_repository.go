package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedSortColumns is a whitelist of columns valid for ORDER BY.
var allowedSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"amount":     "amount",
	"status":     "status",
}

// SessionRepository implements session.Repository using PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new payment session.
func (r *SessionRepository) Create(ctx context.Context, sess *session.PaymentSession) error {
	metadata, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO payment_sessions
		 (id, amount, currency, status, data, metadata, last_error, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sess.ID, sess.Amount, sess.Currency, string(sess.Status),
		[]byte(sess.Data), metadata, sess.LastError, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a payment session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error) {
	return r.scanSession(r.db(ctx).QueryRow(ctx,
		`SELECT id, amount, currency, status, data, metadata, last_error, created_at, updated_at
		 FROM payment_sessions WHERE id = $1`, id))
}

// Update updates an existing payment session.
func (r *SessionRepository) Update(ctx context.Context, sess *session.PaymentSession) error {
	metadata, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_sessions SET
		  amount=$1, currency=$2, status=$3, data=$4, metadata=$5, last_error=$6, updated_at=$7
		 WHERE id=$8`,
		sess.Amount, sess.Currency, string(sess.Status),
		[]byte(sess.Data), metadata, sess.LastError, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

// Delete removes a payment session.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx,
		`DELETE FROM payment_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

// List lists payment sessions with optional filters.
func (r *SessionRepository) List(ctx context.Context, f session.ListFilter) ([]*session.PaymentSession, error) {
	query := `SELECT id, amount, currency, status, data, metadata, last_error, created_at, updated_at
		 FROM payment_sessions WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.Currency != nil {
		query += fmt.Sprintf(" AND currency = $%d", argIdx)
		args = append(args, *f.Currency)
		argIdx++
	}

	// Strict whitelist for sort column
	sortBy := "created_at"
	if col, ok := allowedSortColumns[f.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.PaymentSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// scanSession scans a session from any source implementing the scanner interface.
func (r *SessionRepository) scanSession(s scanner) (*session.PaymentSession, error) {
	sess := &session.PaymentSession{Metadata: make(map[string]any)}
	var (
		status   string
		data     []byte
		metadata []byte
	)
	err := s.Scan(
		&sess.ID, &sess.Amount, &sess.Currency, &status,
		&data, &metadata, &sess.LastError, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.Status = session.Status(status)
	sess.Data = data
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &sess.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return sess, nil
}
