package handler

import (
	"customer-api/internal/api/handler/dto"
	"customer-api/internal/domain/customer"
	"customer-api/internal/pkg/apperrors"
	"errors"
	"log/slog"
	"net/http"
)

type CustomerHandler struct {
	service customer.CustomerService
	logger  *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		service: s,
		logger:  l.With("component", "CustomerHandler"),
	}
}

// ListCustomers handles GET /customers
// @Summary List customers
// @Description Returns every stored customer. An empty store yields an empty array.
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse "List of customers"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers [get]
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received list customers request")

	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list customers", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewCustomerListResponse(customers)
	h.logger.DebugContext(r.Context(), "Customers listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// GetCustomer handles GET /customers/{customerID}
// @Summary Retrieve a customer
// @Description Retrieves a single customer by id.
// @Tags Customers
// @Produce json
// @Param customerID path string true "Customer ID" Format(uuid)
// @Success 200 {object} dto.CustomerResponse "Customer details"
// @Failure 400 {object} dto.ErrorResponse "Malformed customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID} [get]
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	cust, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.logServiceError(r, "Service failed to get customer", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(cust))
}

// CreateCustomer handles POST /customers
// @Summary Create a customer
// @Description Stores a new customer. The server always assigns the id; any id in the body is ignored.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.CustomerRequest true "Customer to create"
// @Success 201 {object} dto.CustomerResponse "Customer created"
// @Failure 400 {object} dto.ErrorResponse "Malformed JSON body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers [post]
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req dto.CustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, err)
		return
	}

	created, err := h.service.CreateCustomer(r.Context(), req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to create customer", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewCustomerResponse(created)
	h.logger.InfoContext(r.Context(), "Customer created successfully", slog.String("customerID", resp.ID))
	w.Header().Set("Location", "/customers/"+resp.ID)
	respondJSON(w, http.StatusCreated, resp)
}

// UpdateCustomer handles PUT /customers/{customerID}
// @Summary Replace a customer
// @Description Replaces the stored customer. The path id always wins over any id in the body.
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID" Format(uuid)
// @Param request body dto.CustomerRequest true "New customer state"
// @Success 200 {object} dto.CustomerResponse "Customer updated"
// @Failure 400 {object} dto.ErrorResponse "Malformed customer ID or JSON body"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID} [put]
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	var req dto.CustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, err)
		return
	}

	updated, err := h.service.UpdateCustomer(r.Context(), customerID, req.ToDomain())
	if err != nil {
		h.logServiceError(r, "Service failed to update customer", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(updated))
}

// DeleteCustomer handles DELETE /customers/{customerID}
// @Summary Delete a customer
// @Description Removes the customer if present. Succeeds whether or not the id existed.
// @Tags Customers
// @Param customerID path string true "Customer ID" Format(uuid)
// @Success 204 "Customer deleted or already absent"
// @Failure 400 {object} dto.ErrorResponse "Malformed customer ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID} [delete]
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	if err := h.service.DeleteCustomer(r.Context(), customerID); err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to delete customer", slog.Any("error", err))
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomerHandler) logServiceError(r *http.Request, msg string, err error) {
	level := slog.LevelError
	if errors.Is(err, apperrors.ErrNotFound) {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, msg, slog.Any("error", err))
}
