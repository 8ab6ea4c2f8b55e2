package memory

import (
	"context"
	"customer-api/internal/domain/customer"
	"customer-api/internal/pkg/apperrors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// CustomerRepository is an in-memory implementation of customer.CustomerRepository.
// It is safe for concurrent use and lists records in insertion order.
type CustomerRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*customer.Customer
	order []uuid.UUID
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byID: make(map[uuid.UUID]*customer.Customer),
	}
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*customer.Customer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cust, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cust.Clone(), nil
}

func (r *CustomerRepository) Insert(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[cust.ID]; ok {
		return fmt.Errorf("%w: customer %s", apperrors.ErrAlreadyExists, cust.ID)
	}
	r.byID[cust.ID] = cust.Clone()
	r.order = append(r.order, cust.ID)
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, id uuid.UUID, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperrors.ErrNotFound
	}
	stored := cust.Clone()
	stored.ID = id
	r.byID[id] = stored
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return nil
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
