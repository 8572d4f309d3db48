/*
scheduler.go - Scheduled retention compaction

PURPOSE:
  Periodically rewrites the action store through the retention rule so
  records refused by the rule (or accepted under drop mode) do not linger
  in the persisted blob. Every run, scheduled or manual, is recorded in the
  compaction log when one is configured.

DESIGN:
  - robfig/cron with a standard 5-field parser (plus @descriptors)
  - Overlapping runs are skipped, not queued
  - An empty schedule disables the cron; RunOnce still works

USAGE:
  c := NewCompactor(engine, "0 3 * * *", time.UTC)
  c.History = sqliteStore
  if err := c.Start(); err != nil { ... }
  defer c.Stop()

SEE ALSO:
  - handlers.go: Compact endpoint (manual run)
  - schedule/records.go: RecordStore.Compact
  - store/sqlite/sqlite.go: compactions table
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/warp/action-calendar/schedule"
	"github.com/warp/action-calendar/store/sqlite"
)

// Compaction sources.
const (
	SourceSchedule = "schedule"
	SourceAPI      = "api"
	SourceCLI      = "cli"
)

// CompactionLog records compaction runs for audit.
type CompactionLog interface {
	RecordCompaction(ctx context.Context, r sqlite.CompactionRun) (int64, error)
}

// Compactor runs retention compaction on a cron schedule.
type Compactor struct {
	Engine   *schedule.Engine
	Schedule string
	Location *time.Location
	History  CompactionLog
	Log      zerolog.Logger
	Timeout  time.Duration

	now  func() time.Time
	mu   sync.Mutex
	cron *cron.Cron
}

// NewCompactor creates a compactor. Call Start to begin the schedule.
func NewCompactor(engine *schedule.Engine, expr string, loc *time.Location) *Compactor {
	if loc == nil {
		loc = time.Local
	}
	return &Compactor{
		Engine:   engine,
		Schedule: expr,
		Location: loc,
		Log:      zerolog.Nop(),
		Timeout:  time.Minute,
		now:      time.Now,
	}
}

func newCronParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ValidateSchedule reports whether expr parses. Empty is valid (disabled).
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := newCronParser().Parse(expr); err != nil {
		return fmt.Errorf("compaction schedule %q: %w", expr, err)
	}
	return nil
}

// Start begins the schedule. It is a no-op when the schedule is empty or
// the compactor is already running.
func (c *Compactor) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Schedule == "" {
		c.Log.Info().Msg("compaction schedule empty, not starting")
		return nil
	}
	if c.cron != nil {
		return nil
	}

	cr := cron.New(
		cron.WithParser(newCronParser()),
		cron.WithLocation(c.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := cr.AddFunc(c.Schedule, c.tick); err != nil {
		return fmt.Errorf("compaction schedule %q: %w", c.Schedule, err)
	}
	cr.Start()
	c.cron = cr

	c.Log.Info().Str("schedule", c.Schedule).Str("timezone", c.Location.String()).Msg("compactor started")
	return nil
}

// Stop halts the schedule and waits for a running compaction to finish.
func (c *Compactor) Stop() {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return
	}
	<-cr.Stop().Done()
	c.Log.Info().Msg("compactor stopped")
}

// Running reports whether the schedule is active.
func (c *Compactor) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cron != nil
}

func (c *Compactor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	_, _, _ = c.RunOnce(ctx, SourceSchedule)
}

// RunOnce compacts the store now and records the run. The returned id is
// zero when no compaction log is configured.
func (c *Compactor) RunOnce(ctx context.Context, source string) (schedule.SaveResult, int64, error) {
	started := c.clock()
	res, err := c.Engine.Compact(ctx)
	completed := c.clock()

	ev := c.Log.Info()
	if err != nil {
		ev = c.Log.Error().Err(err)
	}
	ev.Str("source", source).
		Int("records", res.Records).
		Int("dropped", res.Dropped).
		Dur("took", completed.Sub(started)).
		Msg("compaction run")

	var id int64
	if c.History != nil {
		run := sqlite.CompactionRun{
			Source:      source,
			Records:     res.Records,
			Dropped:     res.Dropped,
			StartedAt:   started,
			CompletedAt: completed,
		}
		if err != nil {
			run.Error = err.Error()
		}
		var herr error
		id, herr = c.History.RecordCompaction(ctx, run)
		if herr != nil {
			c.Log.Warn().Err(herr).Msg("failed to record compaction run")
		}
	}
	return res, id, err
}

func (c *Compactor) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
