package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, u *Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	GetByUnitID(ctx context.Context, unitID string) (*Unit, error)
	List(ctx context.Context, f Filter, pg pagination.Params) ([]*Unit, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Unit, error)
	// Update writes only the non-nil fields of p.
	Update(ctx context.Context, id uuid.UUID, p UnitPatch) error
	CountAvailable(ctx context.Context) (map[blood.Group]int, error)

	// LockForFulfillment returns the units with the given ids, row-locked
	// for the enclosing transaction. Missing ids are absent from the result.
	LockForFulfillment(ctx context.Context, ids []uuid.UUID) ([]*Unit, error)
	// MarkUsed moves the given units from Available to Used and links them
	// to the request. It returns the number of units actually moved.
	MarkUsed(ctx context.Context, ids []uuid.UUID, requestID uuid.UUID, recipient *uuid.UUID) (int, error)
	// ExpireOverdue moves Available units whose expiry has passed to Expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}
