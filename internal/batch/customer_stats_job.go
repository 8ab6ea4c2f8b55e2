package batch

import (
	"context"
	"customer-api/internal/domain/customer"
	"customer-api/internal/infrastructure/monitoring"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultStatsSchedule = "*/5 * * * *"
	defaultStatsTimeout  = 30 * time.Second
)

type customerLister interface {
	ListCustomers(ctx context.Context) ([]*customer.Customer, error)
}

// CustomerStatsJob refreshes the stored-customers gauge from the store.
type CustomerStatsJob struct {
	customers customerLister
	logger    *slog.Logger
}

func NewCustomerStatsJob(customers customerLister, logger *slog.Logger) *CustomerStatsJob {
	if customers == nil || logger == nil {
		panic("CustomerStatsJob dependencies cannot be nil")
	}
	return &CustomerStatsJob{
		customers: customers,
		logger:    logger.With("job", "CustomerStats"),
	}
}

func (j *CustomerStatsJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.DebugContext(ctx, "Starting customer stats job.")

	customers, err := j.customers.ListCustomers(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list customers, gauge left unchanged.", slog.Any("error", err))
		return fmt.Errorf("cannot refresh customer stats: %w", err)
	}

	monitoring.SetCustomersStored(len(customers))
	j.logger.InfoContext(ctx, "Customer stats job finished.",
		slog.Int("customers", len(customers)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Schedule registers the job on c. Empty or non-positive settings fall back
// to the defaults.
func (j *CustomerStatsJob) Schedule(c *cron.Cron, schedule string, timeout time.Duration) (cron.EntryID, error) {
	if schedule == "" {
		schedule = defaultStatsSchedule
		j.logger.Warn("Customer stats schedule not configured, using default", "schedule", schedule)
	}
	if timeout <= 0 {
		timeout = defaultStatsTimeout
	}

	id, err := c.AddJob(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := j.Run(ctx); runErr != nil {
			j.logger.Error("Customer stats job finished with error", slog.Any("error", runErr))
		}
	}))
	if err != nil {
		return 0, fmt.Errorf("failed to schedule customer stats job %q: %w", schedule, err)
	}

	j.logger.Info("Scheduled customer stats job", "schedule", schedule, "job_id", id)
	return id, nil
}
