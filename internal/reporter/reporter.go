package reporter

import (
	"cmp"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/stats"
	"github.com/zeusync/methodwatch/pkg/sequence"
)

var ErrInvalidTop = errors.New("reporter: top must be positive")

// Reporter periodically logs the slowest keys by average execution time.
// It can be started again after Stop; each Start gets a fresh scheduler.
type Reporter struct {
	registry *stats.Registry
	logger   log.Log
	interval time.Duration
	top      int

	mx        sync.Mutex
	scheduler gocron.Scheduler
}

// New creates a Reporter. With a zero interval or a disabled registry the
// Reporter is inert: Start and Stop do nothing.
func New(registry *stats.Registry, logger log.Log, interval time.Duration, top int) (*Reporter, error) {
	if top <= 0 {
		return nil, ErrInvalidTop
	}
	if logger == nil {
		logger = log.Nop()
	}

	r := &Reporter{
		registry: registry,
		logger:   logger.With(log.String("component", "reporter")),
		interval: interval,
		top:      top,
	}
	if !r.Active() {
		return r, nil
	}

	s, err := r.newScheduler()
	if err != nil {
		return nil, err
	}
	r.scheduler = s
	return r, nil
}

func (r *Reporter) newScheduler() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if _, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.report),
		gocron.WithName("statistics-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create report job: %w", err)
	}
	return s, nil
}

// Active reports whether the Reporter schedules anything.
func (r *Reporter) Active() bool {
	return r.interval > 0 && r.registry != nil && r.registry.Enabled()
}

func (r *Reporter) Start() error {
	if !r.Active() {
		return nil
	}

	r.mx.Lock()
	defer r.mx.Unlock()

	if r.scheduler == nil {
		s, err := r.newScheduler()
		if err != nil {
			return err
		}
		r.scheduler = s
	}

	r.logger.Info("Starting reporter",
		log.Duration("interval", r.interval),
		log.Int("top", r.top))
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down and releases it.
func (r *Reporter) Stop() error {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.scheduler == nil {
		return nil
	}
	r.logger.Info("Stopping reporter")
	err := r.scheduler.Shutdown()
	r.scheduler = nil
	return err
}

// Top returns at most n snapshots ordered by descending average time, ties
// broken by key.
func Top(snapshots []stats.Snapshot, n int) []stats.Snapshot {
	top := sequence.NewTopK(n, func(a, b stats.Snapshot) int {
		if c := cmp.Compare(a.AverageTimeMs(), b.AverageTimeMs()); c != 0 {
			return c
		}
		// Lower keys rank higher on ties.
		return cmp.Compare(b.Key, a.Key)
	})
	for _, s := range snapshots {
		top.Push(s)
	}
	return top.Sorted()
}

func (r *Reporter) report() {
	all := r.registry.All()
	if len(all) == 0 {
		r.logger.Debug("No statistics to report")
		return
	}

	for rank, s := range Top(all, r.top) {
		r.logger.Info("Slowest method",
			log.Int("rank", rank+1),
			log.String("key", s.Key),
			log.Uint64("average_ms", s.AverageTimeMs()),
			log.Uint64("max_ms", s.MaxTimeMs),
			log.Uint64("executions", s.TotalExecutions),
			log.Uint64("failures", s.TotalFailures),
			log.Uint64("exceeded", s.ExceededThresholdCount))
	}
}
