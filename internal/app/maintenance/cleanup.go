package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/monitoring"
	"github.com/campusbridge/onboard/pkg/logger"
)

const (
	defaultSchedule      = "@hourly"
	defaultStaleCodeAge  = 24 * time.Hour
	defaultResetTokenAge = 24 * time.Hour
	jobTimeout           = 5 * time.Minute

	JobResetTokens  = "reset_tokens"
	JobStaleCodes   = "stale_codes"
	JobCacheEntries = "cache_entries"
)

// ResetTokenPurger deletes password reset tokens that expired or were used before cutoff.
type ResetTokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CodePurger clears verification codes of unverified accounts that expired before cutoff.
type CodePurger interface {
	PurgeStaleCodes(ctx context.Context, kind models.AccountKind, cutoff time.Time) (int64, error)
}

// CachePurger drops expired cache rows. Only the SQL cache needs it; redis expires keys itself.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: expired reset tokens, stale
// verification codes and expired cache entries.
type Cleaner struct {
	resets ResetTokenPurger
	codes  CodePurger
	cache  CachePurger

	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string

	staleCodeAge  time.Duration
	resetTokenAge time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification shared by all jobs.
func WithSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		if schedule != "" {
			cleaner.schedule = schedule
		}
	}
}

// WithStaleCodeAge sets how long past expiry a verification code is kept.
func WithStaleCodeAge(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.staleCodeAge = d
		}
	}
}

// WithResetTokenAge sets how long past expiry a reset token row is kept.
func WithResetTokenAge(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.resetTokenAge = d
		}
	}
}

// WithCachePurger enables the cache entry job.
func WithCachePurger(p CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = p
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(resets ResetTokenPurger, codes CodePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		resets:        resets,
		codes:         codes,
		now:           time.Now,
		schedule:      defaultSchedule,
		staleCodeAge:  defaultStaleCodeAge,
		resetTokenAge: defaultResetTokenAge,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

type job struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.resets != nil {
		jobs = append(jobs, job{name: JobResetTokens, run: func(ctx context.Context) (int64, error) {
			return c.resets.PurgeExpired(ctx, c.now().Add(-c.resetTokenAge))
		}})
	}
	if c.codes != nil {
		jobs = append(jobs, job{name: JobStaleCodes, run: func(ctx context.Context) (int64, error) {
			cutoff := c.now().Add(-c.staleCodeAge)
			var total int64
			var errs error
			for _, kind := range models.AccountKinds {
				n, err := c.codes.PurgeStaleCodes(ctx, kind, cutoff)
				total += n
				errs = multierr.Append(errs, err)
			}
			return total, errs
		}})
	}
	if c.cache != nil {
		jobs = append(jobs, job{name: JobCacheEntries, run: c.cache.PurgeExpired})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := c.cron.AddFunc(c.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := c.execute(ctx, j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially and reports
// every failure. Used at startup and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	start := time.Now()
	purged, err := j.run(ctx)
	duration := time.Since(start)

	if err != nil {
		monitoring.RecordMaintenanceRun(j.name, "failure", err.Error(), purged, duration)
		return fmt.Errorf("%s: %w", j.name, err)
	}

	monitoring.RecordMaintenanceRun(j.name, "success", "", purged, duration)
	if purged > 0 {
		c.log.Info("maintenance job purged rows", zap.String("job", j.name), zap.Int64("rows", purged))
	}
	return nil
}
