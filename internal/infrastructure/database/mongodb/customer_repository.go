package mongodb

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
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// customerDocument is the stored shape; ids are kept in their canonical string form.
type customerDocument struct {
	ID   string  `bson:"_id"`
	Name *string `bson:"name"`
}

func toDocument(cust *customer.Customer) customerDocument {
	return customerDocument{ID: cust.ID.String(), Name: cust.Name}
}

func (d customerDocument) toDomain() (*customer.Customer, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid stored customer id %q: %w", d.ID, err)
	}
	return &customer.Customer{ID: id, Name: d.Name}, nil
}

type CustomerRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(coll *mongo.Collection, logger *slog.Logger) *CustomerRepository {
	if coll == nil {
		panic("mongo collection cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &CustomerRepository{
		coll:   coll,
		logger: logger.With("component", "MongoCustomerRepository"),
	}
}

func observe(queryName string, start time.Time, err error) {
	monitoring.RecordDBQuery("mongo_"+queryName, monitoring.QueryStatus(err, errors.Is(err, apperrors.ErrNotFound)), time.Since(start))
}

func byID(id uuid.UUID) bson.D {
	return bson.D{{Key: "_id", Value: id.String()}}
}

func (r *CustomerRepository) FindAll(ctx context.Context) (customers []*customer.Customer, err error) {
	defer func(start time.Time) { observe("find_all_customers", start, err) }(time.Now())

	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to query customers")
	}

	var docs []customerDocument
	if err = cursor.All(ctx, &docs); err != nil {
		r.logger.ErrorContext(ctx, "Failed to decode customer documents", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to decode customers")
	}

	customers = make([]*customer.Customer, 0, len(docs))
	for _, doc := range docs {
		cust, convErr := doc.toDomain()
		if convErr != nil {
			err = apperrors.WrapDatabaseError(convErr, "failed to decode customers")
			return nil, err
		}
		customers = append(customers, cust)
	}

	r.logger.DebugContext(ctx, "Finished finding customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (cust *customer.Customer, err error) {
	defer func(start time.Time) { observe("find_customer_by_id", start, err) }(time.Now())

	var doc customerDocument
	if err = r.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = apperrors.ErrNotFound
			return nil, err
		}
		r.logger.ErrorContext(ctx, "Failed to find customer", slog.String("customerID", id.String()), slog.Any("error", err))
		err = apperrors.WrapDatabaseError(err, "failed to get customer by ID")
		return nil, err
	}

	cust, err = doc.toDomain()
	if err != nil {
		err = apperrors.WrapDatabaseError(err, "failed to decode customer")
		return nil, err
	}
	return cust, nil
}

func (r *CustomerRepository) Insert(ctx context.Context, cust *customer.Customer) (err error) {
	defer func(start time.Time) { observe("insert_customer", start, err) }(time.Now())

	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	if _, err = r.coll.InsertOne(ctx, toDocument(cust)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.WarnContext(ctx, "Duplicate customer id on insert", slog.String("customerID", cust.ID.String()))
			err = fmt.Errorf("%w: customer %s", apperrors.ErrAlreadyExists, cust.ID)
			return err
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		err = apperrors.WrapDatabaseError(err, "failed to insert customer")
		return err
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.String("customerID", cust.ID.String()))
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, id uuid.UUID, cust *customer.Customer) (err error) {
	defer func(start time.Time) { observe("update_customer", start, err) }(time.Now())

	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	doc := customerDocument{ID: id.String(), Name: cust.Name}
	res, err := r.coll.ReplaceOne(ctx, byID(id), doc)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to replace customer", slog.Any("error", err))
		err = apperrors.WrapDatabaseError(err, "failed to update customer")
		return err
	}

	if res.MatchedCount == 0 {
		r.logger.WarnContext(ctx, "Update matched zero documents, customer likely not found", slog.String("customerID", id.String()))
		err = apperrors.ErrNotFound
		return err
	}

	r.logger.InfoContext(ctx, "Customer updated successfully", slog.String("customerID", id.String()))
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { observe("delete_customer", start, err) }(time.Now())

	res, err := r.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer", slog.Any("error", err))
		err = apperrors.WrapDatabaseError(err, "failed to delete customer")
		return err
	}

	if res.DeletedCount == 0 {
		r.logger.DebugContext(ctx, "Delete matched zero documents, customer already absent", slog.String("customerID", id.String()))
	}
	return nil
}
