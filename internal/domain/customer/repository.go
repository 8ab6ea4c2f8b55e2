package customer

import (
	"context"
	"customer-api/internal/pkg/apperrors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound = fmt.Errorf("customer %w", apperrors.ErrNotFound)
)

// CustomerRepository is the persistence port for customers. Implementations
// return apperrors.ErrNotFound when a lookup or update misses, and
// apperrors.ErrAlreadyExists when Insert hits an existing id. Delete of an
// absent id is not an error.
type CustomerRepository interface {
	FindAll(ctx context.Context) ([]*Customer, error)

	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	Insert(ctx context.Context, cust *Customer) error

	Update(ctx context.Context, id uuid.UUID, cust *Customer) error

	Delete(ctx context.Context, id uuid.UUID) error
}
