package memory

import (
	"context"
	"customer-api/internal/domain/customer"
	"customer-api/internal/pkg/apperrors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCustomerRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()

	empty, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty, "empty store should return a non-nil slice")
	assert.Len(t, empty, 0)

	first := &customer.Customer{ID: uuid.New(), Name: strPtr("first")}
	second := &customer.Customer{ID: uuid.New(), Name: strPtr("second")}
	third := &customer.Customer{ID: uuid.New()}
	for _, c := range []*customer.Customer{first, second, third} {
		require.NoError(t, repo.Insert(ctx, c))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID}, "listing keeps insertion order")

	require.NoError(t, repo.Delete(ctx, second.ID))
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, third.ID}, []uuid.UUID{all[0].ID, all[1].ID})
}

func TestCustomerRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()
	cust := &customer.Customer{ID: uuid.New(), Name: strPtr("Alice")}
	require.NoError(t, repo.Insert(ctx, cust))

	t.Run("found", func(t *testing.T) {
		found, err := repo.FindByID(ctx, cust.ID)
		require.NoError(t, err)
		assert.Equal(t, cust, found)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		found, err := repo.FindByID(ctx, cust.ID)
		require.NoError(t, err)
		*found.Name = "mutated"

		again, err := repo.FindByID(ctx, cust.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", *again.Name)
	})

	t.Run("not found", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, found)
	})
}

func TestCustomerRepository_Insert(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()
	cust := &customer.Customer{ID: uuid.New(), Name: strPtr("Alice")}

	require.NoError(t, repo.Insert(ctx, cust))

	err := repo.Insert(ctx, &customer.Customer{ID: cust.ID, Name: strPtr("Other")})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	stored, err := repo.FindByID(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *stored.Name, "duplicate insert must not overwrite")

	assert.ErrorIs(t, repo.Insert(ctx, nil), apperrors.ErrInvalidArgument)
}

func TestCustomerRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()
	cust := &customer.Customer{ID: uuid.New(), Name: strPtr("Alice")}
	require.NoError(t, repo.Insert(ctx, cust))

	t.Run("replaces fields and keeps key", func(t *testing.T) {
		err := repo.Update(ctx, cust.ID, &customer.Customer{ID: uuid.New(), Name: strPtr("Alicia")})
		require.NoError(t, err)

		stored, err := repo.FindByID(ctx, cust.ID)
		require.NoError(t, err)
		assert.Equal(t, cust.ID, stored.ID)
		assert.Equal(t, "Alicia", *stored.Name)
	})

	t.Run("clears name", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, cust.ID, &customer.Customer{}))
		stored, err := repo.FindByID(ctx, cust.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Name)
	})

	t.Run("missing id", func(t *testing.T) {
		err := repo.Update(ctx, uuid.New(), &customer.Customer{Name: strPtr("ghost")})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestCustomerRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()
	cust := &customer.Customer{ID: uuid.New(), Name: strPtr("Alice")}
	require.NoError(t, repo.Insert(ctx, cust))

	require.NoError(t, repo.Delete(ctx, cust.ID))
	_, err := repo.FindByID(ctx, cust.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, repo.Delete(ctx, cust.ID), "deleting an absent id is a no-op")
	assert.NoError(t, repo.Delete(ctx, uuid.New()))
}

func TestCustomerRepository_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &customer.Customer{ID: uuid.New(), Name: strPtr("worker")}
			assert.NoError(t, repo.Insert(ctx, c))
			_, err := repo.FindByID(ctx, c.ID)
			assert.NoError(t, err)
			_, err = repo.FindAll(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
