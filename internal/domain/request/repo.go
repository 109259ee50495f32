package request

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// GetForUpdate reads the request and row-locks it for the enclosing
	// transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)
	List(ctx context.Context, f Filter, pg pagination.Params) ([]*Request, int, error)
	// UpdateStatus moves the request from one status to another and reports
	// false when the stored status was no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	// MarkFulfilled records the fulfillment of an Approved request and
	// reports false when the request was not Approved.
	MarkFulfilled(ctx context.Context, id uuid.UUID, units []uuid.UUID, at time.Time) (bool, error)
}
