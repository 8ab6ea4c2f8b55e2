package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"customer-api/internal/domain/customer"
	"customer-api/internal/infrastructure/monitoring"
	"customer-api/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	selectAllCustomersQuery = `SELECT id, name FROM customers ORDER BY created_at`
	selectCustomerByIDQuery = `SELECT id, name FROM customers WHERE id = $1`
	insertCustomerQuery     = `INSERT INTO customers (id, name) VALUES ($1, $2)`
	updateCustomerQuery     = `UPDATE customers SET name = $1 WHERE id = $2`
	deleteCustomerQuery     = `DELETE FROM customers WHERE id = $1`

	uniqueViolationCode = "23505"
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func observe(queryName string, start time.Time, err error) {
	monitoring.RecordDBQuery(queryName, monitoring.QueryStatus(err, errors.Is(err, apperrors.ErrNotFound)), time.Since(start))
}

func (r *CustomerRepository) FindAll(ctx context.Context) (customers []*customer.Customer, err error) {
	defer func(start time.Time) { observe("find_all_customers", start, err) }(time.Now())

	r.logger.DebugContext(ctx, "Attempting to find all customers")

	rows, err := r.db.Query(ctx, selectAllCustomersQuery)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to query customers")
	}
	defer rows.Close()

	customers = make([]*customer.Customer, 0)
	for rows.Next() {
		var cust customer.Customer
		if err = rows.Scan(&cust.ID, &cust.Name); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed to scan customer row")
		}
		customers = append(customers, &cust)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "error iterating customer rows")
	}

	r.logger.DebugContext(ctx, "Finished finding customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (cust *customer.Customer, err error) {
	defer func(start time.Time) { observe("find_customer_by_id", start, err) }(time.Now())

	logger := r.logger.With(slog.String("customerID", id.String()))
	logger.DebugContext(ctx, "Attempting to find customer by ID")

	var found customer.Customer
	if err = r.db.QueryRow(ctx, selectCustomerByIDQuery, id).Scan(&found.ID, &found.Name); err != nil {
		err = translateDBError(err, logger)
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.DebugContext(ctx, "Customer not found")
		}
		return nil, err
	}

	return &found, nil
}

func (r *CustomerRepository) Insert(ctx context.Context, cust *customer.Customer) (err error) {
	defer func(start time.Time) { observe("insert_customer", start, err) }(time.Now())

	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	logger := r.logger.With(slog.String("customerID", cust.ID.String()))
	logger.DebugContext(ctx, "Attempting to insert new customer")

	if _, err = r.db.Exec(ctx, insertCustomerQuery, cust.ID, cust.Name); err != nil {
		err = translateDBError(err, logger)
		return err
	}

	logger.InfoContext(ctx, "Customer inserted successfully")
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, id uuid.UUID, cust *customer.Customer) (err error) {
	defer func(start time.Time) { observe("update_customer", start, err) }(time.Now())

	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	logger := r.logger.With(slog.String("customerID", id.String()))
	logger.DebugContext(ctx, "Attempting to update customer")

	cmdTag, err := r.db.Exec(ctx, updateCustomerQuery, cust.Name, id)
	if err != nil {
		err = translateDBError(err, logger)
		return err
	}

	if cmdTag.RowsAffected() == 0 {
		logger.WarnContext(ctx, "Update affected zero rows, customer likely not found")
		err = apperrors.ErrNotFound
		return err
	}

	logger.InfoContext(ctx, "Customer updated successfully")
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { observe("delete_customer", start, err) }(time.Now())

	logger := r.logger.With(slog.String("customerID", id.String()))
	logger.DebugContext(ctx, "Attempting to delete customer")

	cmdTag, err := r.db.Exec(ctx, deleteCustomerQuery, id)
	if err != nil {
		err = translateDBError(err, logger)
		return err
	}

	if cmdTag.RowsAffected() == 0 {
		logger.DebugContext(ctx, "Delete affected zero rows, customer already absent")
		return nil
	}

	logger.InfoContext(ctx, "Customer deleted successfully")
	return nil
}

func translateDBError(err error, logger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolationCode {
			logger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		logger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return apperrors.WrapDatabaseError(err, fmt.Sprintf("db error code %s", pgErr.Code))
	}

	logger.Error("Generic database error", "error", err)
	return apperrors.WrapDatabaseError(err, "database operation failed")
}
