package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tbjornsen/grantor/internal/cache"
	"github.com/tbjornsen/grantor/internal/services"
	"github.com/tbjornsen/grantor/pkg/logger"
)

// Cleaner schedules periodic pruning of aged audit records and expired
// cache entries.
type Cleaner struct {
	audit *services.AuditService
	store *cache.DatabaseStore

	cron *cron.Cron
	log  *zap.Logger

	retention     int
	auditSchedule string
	cacheSchedule string

	enabled bool
}

// Option customises cleaner construction.
type Option func(*Cleaner)

// WithCron overrides the scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(cl *Cleaner) { cl.cron = c }
}

// WithAuditRetentionDays sets how long audit records are kept. Zero disables
// audit pruning.
func WithAuditRetentionDays(days int) Option {
	return func(cl *Cleaner) { cl.retention = days }
}

// WithAuditSchedule overrides the audit pruning cron expression.
func WithAuditSchedule(spec string) Option {
	return func(cl *Cleaner) {
		if spec != "" {
			cl.auditSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cache pruning cron expression.
func WithCacheSchedule(spec string) Option {
	return func(cl *Cleaner) {
		if spec != "" {
			cl.cacheSchedule = spec
		}
	}
}

// NewCleaner builds a Cleaner. Either dependency may be nil, in which case the
// corresponding job is skipped.
func NewCleaner(audit *services.AuditService, store *cache.DatabaseStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:         audit,
		store:         store,
		log:           logger.Logger().Named("maintenance"),
		retention:     90,
		auditSchedule: "@daily",
		cacheSchedule: "@hourly",
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = (cleaner.audit != nil && cleaner.retention > 0) || cleaner.store != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			ctx := context.Background()
			if _, err := c.store.DeleteExpired(ctx); err != nil {
				c.log.Warn("cache cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used
// in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.store != nil {
		if _, err := c.store.DeleteExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
