package customer_test

import (
	"customer-api/internal/domain/customer"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewCustomer(t *testing.T) {
	name := "Alice Wonderland"

	cust := customer.NewCustomer(&name)

	assert.NotNil(t, cust, "NewCustomer should return a non-nil customer")
	assert.NotEqual(t, uuid.Nil, cust.ID, "NewCustomer should assign an ID")
	assert.Equal(t, uuid.Version(4), cust.ID.Version(), "ID should be a random UUID")
	assert.Equal(t, &name, cust.Name, "Customer name should match input")
}

func TestNewCustomer_UniqueIDs(t *testing.T) {
	seen := make(map[uuid.UUID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		cust := customer.NewCustomer(nil)
		_, dup := seen[cust.ID]
		assert.False(t, dup, "generated IDs must not repeat")
		seen[cust.ID] = struct{}{}
	}
}

func TestCustomer_Clone(t *testing.T) {
	t.Run("copies name by value", func(t *testing.T) {
		name := "Bob"
		original := &customer.Customer{ID: uuid.New(), Name: &name}

		cp := original.Clone()
		*cp.Name = "Robert"

		assert.Equal(t, original.ID, cp.ID)
		assert.Equal(t, "Bob", *original.Name, "mutating the clone must not affect the original")
	})

	t.Run("keeps nil name", func(t *testing.T) {
		original := &customer.Customer{ID: uuid.New()}
		assert.Nil(t, original.Clone().Name)
	})

	t.Run("nil receiver", func(t *testing.T) {
		var original *customer.Customer
		assert.Nil(t, original.Clone())
	})
}
