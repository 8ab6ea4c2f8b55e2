package customer

import (
	"context"
	"customer-api/internal/event"
	"customer-api/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	ListCustomers(ctx context.Context) ([]*Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	CreateCustomer(ctx context.Context, cust *Customer) (*Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, cust *Customer) (*Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

var _ CustomerService = (*customerService)(nil)

// customerService keeps no state between calls; everything lives in the repository.
type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, eventPublisher event.EventPublisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	if eventPublisher == nil {
		eventPublisher = event.NoopEventPublisher{}
	}

	return &customerService{
		repo:   repo,
		pub:    eventPublisher,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func NewCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	return event.CustomerEventPayload{
		ID:   cust.ID.String(),
		Name: cust.Name,
	}
}

func (s *customerService) ListCustomers(ctx context.Context) ([]*Customer, error) {
	s.logger.DebugContext(ctx, "Calling repository FindAll")
	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	logger := s.logger.With(slog.String("customerID", id.String()))

	logger.DebugContext(ctx, "Calling repository FindByID")
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, customerNotFound)
			return nil, ErrNotFound
		}

		logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %s: %w", id, err)
	}

	logger.InfoContext(ctx, "Successfully retrieved customer")
	return customer, nil
}

// CreateCustomer always assigns a fresh identifier; any ID on the input is discarded.
func (s *customerService) CreateCustomer(ctx context.Context, cust *Customer) (*Customer, error) {
	if cust == nil {
		cust = &Customer{}
	}
	created := NewCustomer(cust.Name)
	logger := s.logger.With(slog.String("customerID", created.ID.String()))

	logger.DebugContext(ctx, "Calling repository Insert")
	if err := s.repo.Insert(ctx, created); err != nil {
		logger.ErrorContext(ctx, "Repository failed to insert new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	createdEvent := event.CustomerCreatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(created),
	}
	if pubErr := s.pub.PublishCustomerCreated(ctx, createdEvent); pubErr != nil {
		logger.ErrorContext(ctx, "Customer created, but FAILED to publish creation event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully created new customer")
	return created, nil
}

// UpdateCustomer replaces the stored record. The path id always wins over the
// body id, and a missing record yields ErrNotFound without any write.
func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, cust *Customer) (*Customer, error) {
	logger := s.logger.With(slog.String("customerID", id.String()))

	updated := cust.Clone()
	if updated == nil {
		updated = &Customer{}
	}
	updated.ID = id

	logger.DebugContext(ctx, "Calling repository FindByID to check existence")
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer not found by repository for update")
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository error finding customer for update", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find customer %s for update: %w", id, err)
	}

	logger.DebugContext(ctx, "Calling repository Update")
	if err := s.repo.Update(ctx, id, updated); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer disappeared before update")
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "Repository failed to update customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update customer %s: %w", id, err)
	}

	updatedEvent := event.CustomerUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   NewCustomerEventPayload(updated),
	}
	if pubErr := s.pub.PublishCustomerUpdated(ctx, updatedEvent); pubErr != nil {
		logger.ErrorContext(ctx, "Customer updated, but FAILED to publish update event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully updated customer")
	return updated, nil
}

// DeleteCustomer is idempotent: deleting an unknown id succeeds and writes nothing.
func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	logger := s.logger.With(slog.String("customerID", id.String()))

	logger.DebugContext(ctx, "Calling repository FindByID to check existence")
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.InfoContext(ctx, "Customer already absent, nothing to delete")
			return nil
		}
		logger.ErrorContext(ctx, "Repository error finding customer for delete", slog.Any("error", err))
		return fmt.Errorf("failed to find customer %s for delete: %w", id, err)
	}

	logger.DebugContext(ctx, "Calling repository Delete")
	if err := s.repo.Delete(ctx, id); err != nil {
		logger.ErrorContext(ctx, "Repository failed to delete customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %s: %w", id, err)
	}

	deletedEvent := event.CustomerDeletedEvent{
		Timestamp:  time.Now(),
		CustomerID: id.String(),
	}
	if pubErr := s.pub.PublishCustomerDeleted(ctx, deletedEvent); pubErr != nil {
		logger.ErrorContext(ctx, "Customer deleted, but FAILED to publish deletion event", slog.Any("error", pubErr))
	}

	logger.InfoContext(ctx, "Successfully deleted customer")
	return nil
}
