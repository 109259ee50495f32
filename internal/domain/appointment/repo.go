package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// List returns appointments, only the donor's when donorID is set.
	List(ctx context.Context, donorID *uuid.UUID, pg pagination.Params) ([]*Appointment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}
