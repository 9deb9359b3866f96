// Package expiry runs the periodic sweep that expires stale appointment requests.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/motocare/internal/observability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is how often the sweep runs.
	DefaultInterval = 15 * time.Minute
	// DefaultTimeout bounds a single sweep.
	DefaultTimeout = time.Minute

	sweepStatusOK    = "ok"
	sweepStatusError = "error"
)

var (
	// ErrInvalidConfig reports a sweeper built without its dependencies.
	ErrInvalidConfig = errors.New("invalid sweeper configuration")
	// ErrAlreadyStarted reports a second Start on the same sweeper.
	ErrAlreadyStarted = errors.New("sweeper already started")
)

// Expirer expires REQUESTED appointments older than threshold at now.
// A non-positive threshold uses the service's configured expiry.
type Expirer interface {
	ExpireStaleAppointments(ctx context.Context, now time.Time, threshold time.Duration) (int, error)
}

// Config controls the sweep schedule.
type Config struct {
	Interval  time.Duration
	Threshold time.Duration
	Timeout   time.Duration
}

func (config Config) withDefaults() Config {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return config
}

// Sweeper schedules stale-request sweeps with cron.
type Sweeper struct {
	expirer Expirer
	now     func() time.Time
	logger  *zap.Logger
	metrics *observability.Metrics
	config  Config

	mutex     sync.Mutex
	scheduler *cron.Cron
}

// NewSweeper validates dependencies and returns a stopped Sweeper. metrics may be nil.
func NewSweeper(expirer Expirer, now func() time.Time, logger *zap.Logger, metrics *observability.Metrics, config Config) (*Sweeper, error) {
	if expirer == nil || now == nil || logger == nil {
		return nil, ErrInvalidConfig
	}
	return &Sweeper{
		expirer: expirer,
		now:     now,
		logger:  logger.Named("expiry"),
		metrics: metrics,
		config:  config.withDefaults(),
	}, nil
}

// RunOnce performs a single sweep and returns how many appointments expired.
func (sweeper *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, sweeper.config.Timeout)
	defer cancel()

	started := sweeper.now()
	expired, err := sweeper.expirer.ExpireStaleAppointments(ctx, started, sweeper.config.Threshold)
	if sweeper.metrics != nil {
		sweeper.metrics.ExpiredAppointments.Add(float64(expired))
	}
	if err != nil {
		sweeper.countSweep(sweepStatusError)
		sweeper.logger.Error("expiry sweep failed", zap.Int("expired", expired), zap.Error(err))
		return expired, fmt.Errorf("expiry sweep: %w", err)
	}
	sweeper.countSweep(sweepStatusOK)
	sweeper.logger.Info("expiry sweep completed",
		zap.Int("expired", expired),
		zap.Duration("elapsed", sweeper.now().Sub(started)),
	)
	return expired, nil
}

// Start runs one sweep immediately and then schedules one per interval until
// Stop is called or ctx is done.
func (sweeper *Sweeper) Start(ctx context.Context) error {
	sweeper.mutex.Lock()
	defer sweeper.mutex.Unlock()
	if sweeper.scheduler != nil {
		return ErrAlreadyStarted
	}

	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	schedule := fmt.Sprintf("@every %s", sweeper.config.Interval)
	if _, err := scheduler.AddFunc(schedule, func() {
		_, _ = sweeper.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}

	_, _ = sweeper.RunOnce(ctx)
	scheduler.Start()
	sweeper.scheduler = scheduler
	sweeper.logger.Info("expiry sweeper started", zap.Duration("interval", sweeper.config.Interval))

	go func() {
		<-ctx.Done()
		sweeper.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (sweeper *Sweeper) Stop() {
	sweeper.mutex.Lock()
	scheduler := sweeper.scheduler
	sweeper.mutex.Unlock()
	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
}

func (sweeper *Sweeper) countSweep(status string) {
	if sweeper.metrics != nil {
		sweeper.metrics.ExpirySweeps.WithLabelValues(status).Inc()
	}
}
