package bloodbank

import (
	"context"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, b *BloodBank) error
	GetByID(ctx context.Context, id uuid.UUID) (*BloodBank, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*BloodBank, error)
	List(ctx context.Context, pg pagination.Params) ([]*BloodBank, int, error)
}
