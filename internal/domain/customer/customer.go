package customer

import "github.com/google/uuid"

// Customer is the only resource exposed by the API. Name is nullable and
// carries no constraints.
type Customer struct {
	ID   uuid.UUID
	Name *string
}

func NewCustomer(name *string) *Customer {
	return &Customer{
		ID:   uuid.New(),
		Name: name,
	}
}

// Clone returns a deep copy so stores never share the name pointer with callers.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	cp := &Customer{ID: c.ID}
	if c.Name != nil {
		name := *c.Name
		cp.Name = &name
	}
	return cp
}
