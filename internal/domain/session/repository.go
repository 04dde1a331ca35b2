package session

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for payment session persistence.
// Storage belongs to the host side; the provider adapter never touches it.
type Repository interface {
	// Create creates a new payment session
	Create(ctx context.Context, sess *PaymentSession) error

	// GetByID retrieves a payment session by ID
	GetByID(ctx context.Context, id uuid.UUID) (*PaymentSession, error)

	// Update updates an existing payment session
	Update(ctx context.Context, sess *PaymentSession) error

	// Delete removes a payment session
	Delete(ctx context.Context, id uuid.UUID) error

	// List lists payment sessions with filters
	List(ctx context.Context, filter ListFilter) ([]*PaymentSession, error)
}

// ListFilter defines filters for listing payment sessions.
type ListFilter struct {
	Status    *Status
	Currency  *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}
