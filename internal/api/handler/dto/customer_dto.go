package dto

import (
	"customer-api/internal/domain/customer"
)

// CustomerRequest is the body of create and update calls. Any "id" sent by
// the client is not bound: create generates one and update uses the path.
type CustomerRequest struct {
	Name *string `json:"name" example:"Alice" extensions:"x-nullable"`
}

func (r CustomerRequest) ToDomain() *customer.Customer {
	return &customer.Customer{Name: r.Name}
}

type CustomerResponse struct {
	ID   string  `json:"id" example:"3fa85f64-5717-4562-b3fc-2c963f66afa6" format:"uuid" readonly:"true"`
	Name *string `json:"name" example:"Alice" extensions:"x-nullable"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:   cust.ID.String(),
		Name: cust.Name,
	}
}

func NewCustomerListResponse(customers []*customer.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, 0, len(customers))
	for _, cust := range customers {
		resp = append(resp, NewCustomerResponse(cust))
	}
	return resp
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
