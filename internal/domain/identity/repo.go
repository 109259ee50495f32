package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

// Repository persists users. GetByID and GetByEmail return an apperr
// NotFound when no user matches; Create returns an apperr BadRequest when
// the email is taken.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// ListByIDs returns the users that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	// List returns users with the given role, or all users when role is empty.
	List(ctx context.Context, role auth.Role, pg pagination.Params) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
}
