// Package cycle runs the scrape loop: one collect/filter/persist unit per
// cycle at a fixed interval until the context is cancelled.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/dedup"
	"github.com/JakeFAU/topicstreams-scraper/internal/news"
	"github.com/JakeFAU/topicstreams-scraper/internal/scheduler"
)

// State is the controller lifecycle state.
type State string

// Controller states.
const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

// Outcome classifies a finished cycle.
type Outcome string

// Cycle outcomes.
const (
	OutcomeSuccess     Outcome = "success"
	OutcomeFailed      Outcome = "failed"
	OutcomeInterrupted Outcome = "interrupted"
)

// Report summarizes one cycle.
type Report struct {
	CycleID      string        `json:"cycle_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	Outcome      Outcome       `json:"outcome"`
	Topics       int           `json:"topics"`
	Found        int           `json:"entries_found"`
	New          int           `json:"entries_new"`
	HistorySize  int           `json:"history_size"`
	HistoryReset bool          `json:"history_reset"`
	Error        string        `json:"error,omitempty"`
}

// Status is a point-in-time view of the controller.
type Status struct {
	State    State         `json:"state"`
	Cycles   int           `json:"cycles"`
	Failures int           `json:"failures"`
	Interval time.Duration `json:"interval_ns"`
	Last     *Report       `json:"last,omitempty"`
}

// Collector gathers one cycle's raw entries and logs.
type Collector interface {
	Collect(ctx context.Context) (scheduler.Batch, error)
}

// Recorder receives cycle measurements.
type Recorder interface {
	ObserveCycle(outcome string, elapsed time.Duration, topics, found, fresh int)
	ObserveHistory(size int, reset bool)
	ObserveOverrun()
}

// PanicError wraps a value recovered from a panicking cycle.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("cycle panicked: %v", e.Value)
}

// Deps bundles the collaborators a Controller drives.
type Deps struct {
	Collector Collector
	Gateway   news.Gateway
	Cache     *dedup.Cache
	// Session is released once on shutdown.
	Session  io.Closer
	Notifier news.Notifier
	Clock    news.Clock
	IDs      news.IDGenerator
	Recorder Recorder
}

// Config controls loop timing. A non-positive Interval starts each cycle
// immediately after the previous one.
type Config struct {
	Interval time.Duration
}

// Controller owns the cycle loop and the seen-history cache.
type Controller struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	state    State
	cycles   int
	failures int
	last     *Report
}

// New constructs a Controller. Collector, Gateway, Clock and IDs are required.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Controller, error) {
	if deps.Collector == nil || deps.Gateway == nil || deps.Clock == nil || deps.IDs == nil {
		return nil, errors.New("collector, gateway, clock and id generator are required")
	}
	if deps.Cache == nil {
		deps.Cache = dedup.New(dedup.DefaultCapacity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("cycle"),
		state:  StateIdle,
	}, nil
}

// NextDelay returns how long to wait before the next cycle.
func NextDelay(interval, elapsed time.Duration) time.Duration {
	if interval <= 0 || elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// Run executes cycles until ctx is cancelled, then releases the session.
// Cycle failures never end the loop; Run returns nil after a clean shutdown.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(StateRunning)
	c.logger.Info("scraper loop started", zap.Duration("interval", c.cfg.Interval))

	for ctx.Err() == nil {
		report := c.RunCycle(ctx)
		if report.Outcome == OutcomeInterrupted || ctx.Err() != nil {
			break
		}

		delay := NextDelay(c.cfg.Interval, report.Elapsed)
		if delay > 0 {
			c.logger.Info("waiting until next cycle", zap.Duration("delay", delay))
			if err := c.deps.Clock.Sleep(ctx, delay); err != nil {
				break
			}
			continue
		}
		c.logger.Warn("cycle exceeded interval, starting next cycle immediately",
			zap.Duration("elapsed", report.Elapsed),
			zap.Duration("interval", c.cfg.Interval),
		)
		if c.deps.Recorder != nil {
			c.deps.Recorder.ObserveOverrun()
		}
	}

	c.shutdown()
	return nil
}

func (c *Controller) shutdown() {
	c.setState(StateShuttingDown)
	c.logger.Info("shutting down")
	if c.deps.Session != nil {
		if err := c.deps.Session.Close(); err != nil {
			c.logger.Warn("close browser session failed", zap.Error(err))
		}
	}
	c.setState(StateStopped)
	c.logger.Info("scraper stopped")
}

// RunCycle executes a single cycle and records its report.
func (c *Controller) RunCycle(ctx context.Context) Report {
	start := c.deps.Clock.Now()
	report := Report{CycleID: c.cycleID(start), StartedAt: start}
	logger := c.logger.With(zap.String("cycle_id", report.CycleID))

	err := c.runUnit(ctx, &report)

	report.FinishedAt = c.deps.Clock.Now()
	report.Elapsed = report.FinishedAt.Sub(start)
	switch {
	case err != nil && ctx.Err() != nil:
		report.Outcome = OutcomeInterrupted
		report.Error = err.Error()
		logger.Info("cycle interrupted", zap.Duration("elapsed", report.Elapsed))
	case err != nil:
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		fields := []zap.Field{zap.Duration("elapsed", report.Elapsed), zap.Error(err)}
		var pe *PanicError
		if errors.As(err, &pe) {
			fields = append(fields, zap.ByteString("panic_stack", pe.Stack))
		} else {
			fields = append(fields, zap.Stack("stack"))
		}
		logger.Error("cycle failed", fields...)
	default:
		report.Outcome = OutcomeSuccess
		logger.Info("cycle finished",
			zap.Int("topics", report.Topics),
			zap.Int("entries_found", report.Found),
			zap.Int("entries_new", report.New),
			zap.Duration("elapsed", report.Elapsed),
		)
	}

	c.record(report)
	return report
}

// runUnit is the collect, filter, persist and record-seen sequence. Entries
// are marked seen as soon as the insert call returns without error.
func (c *Controller) runUnit(ctx context.Context, report *Report) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	batch, err := c.deps.Collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	report.Topics = batch.Topics
	report.Found = len(batch.Entries)

	fresh := c.deps.Cache.FilterNew(batch.Entries)
	report.New = len(fresh)

	if err := c.deps.Gateway.InsertNewsEntries(ctx, fresh); err != nil {
		return fmt.Errorf("persist entries: %w", err)
	}
	cleared := c.deps.Cache.RecordSeen(fresh)
	report.HistoryReset = cleared > 0
	report.HistorySize = c.deps.Cache.Len()
	if report.HistoryReset {
		c.logger.Info("seen history cleared at capacity",
			zap.Int("cleared", cleared),
			zap.Int("capacity", c.deps.Cache.Capacity()),
		)
	}

	for i := range batch.Logs {
		batch.Logs[i].CycleID = report.CycleID
	}
	if err := c.deps.Gateway.InsertScraperLogs(ctx, batch.Logs); err != nil {
		return fmt.Errorf("persist scraper logs: %w", err)
	}

	if c.deps.Notifier != nil && len(fresh) > 0 {
		if err := c.deps.Notifier.Announce(ctx, report.CycleID, fresh); err != nil {
			c.logger.Warn("announce new entries failed",
				zap.String("cycle_id", report.CycleID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *Controller) cycleID(start time.Time) string {
	id, err := c.deps.IDs.NewID()
	if err != nil {
		c.logger.Warn("generate cycle id failed", zap.Error(err))
		return fmt.Sprintf("cycle-%d", start.UnixNano())
	}
	return id
}

func (c *Controller) record(report Report) {
	c.mu.Lock()
	c.cycles++
	if report.Outcome == OutcomeFailed {
		c.failures++
	}
	c.last = &report
	c.mu.Unlock()

	if c.deps.Recorder == nil {
		return
	}
	c.deps.Recorder.ObserveCycle(string(report.Outcome), report.Elapsed, report.Topics, report.Found, report.New)
	c.deps.Recorder.ObserveHistory(c.deps.Cache.Len(), report.HistoryReset)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Status returns the current state and the latest report.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{
		State:    c.state,
		Cycles:   c.cycles,
		Failures: c.failures,
		Interval: c.cfg.Interval,
	}
	if c.last != nil {
		last := *c.last
		st.Last = &last
	}
	return st
}
