/*
Package factory turns configuration into a wired scheduling engine.

PURPOSE:
  Converts a config.Config into the blob store, RecordStore, retention rule,
  metrics and Engine the server and CLI run on. Callers never assemble the
  pieces by hand, so `serve`, `compact` and tests build the same system.

STORAGE DRIVERS:
  memory: blob.Memory, lost on exit
  file:   blob.File under storage.path
  sqlite: sqlite.Store at storage.path, also records compaction runs

USAGE:
  sys, err := factory.Build(cfg, factory.Options{Logger: log})
  if err != nil {
      return err
  }
  defer sys.Close()

  grid, err := sys.Engine.BuildGrid(2024, 1)

SEE ALSO:
  - config/config.go: The settings consumed here
  - schedule/engine.go: The engine being built
*/
package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/warp/action-calendar/config"
	"github.com/warp/action-calendar/logx"
	"github.com/warp/action-calendar/schedule"
	"github.com/warp/action-calendar/schedule/blob"
	"github.com/warp/action-calendar/store/sqlite"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "actioncal"

// Options are the runtime collaborators that do not come from the config file.
type Options struct {
	Logger zerolog.Logger
	// Registerer receives the store metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Now overrides the engine clock.
	Now func() time.Time
}

// System is a fully wired engine plus the resources behind it.
type System struct {
	Engine  *schedule.Engine
	Records *schedule.RecordStore
	Blob    schedule.BlobStore
	Metrics *schedule.Metrics

	// SQLite is set when storage.driver is sqlite.
	SQLite *sqlite.Store

	closers []func() error
}

// Close releases storage resources.
func (s *System) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RetentionRule builds the configured retention rule.
func RetentionRule(cfg config.RetentionConfig) schedule.RetentionRule {
	return schedule.CategoryRetention{
		Categories: append([]string(nil), cfg.Categories...),
		KeepLegacy: cfg.KeepLegacy,
	}
}

// Build wires the engine described by cfg.
func Build(cfg *config.Config, opts Options) (*System, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	mode, err := schedule.ParseRetentionMode(cfg.Retention.Mode)
	if err != nil {
		return nil, err
	}

	sys := &System{}
	if err := sys.openBlob(cfg.Storage); err != nil {
		return nil, err
	}

	rule := RetentionRule(cfg.Retention)
	records := schedule.NewRecordStore(sys.Blob, rule)
	records.Key = cfg.Storage.Key
	records.Mode = mode
	records.Log = logx.Component(opts.Logger, "record_store")
	if opts.Registerer != nil {
		sys.Metrics = schedule.NewMetrics(MetricsNamespace, opts.Registerer)
		records.Metrics = sys.Metrics
	}

	engine := schedule.NewEngine(records)
	engine.Location = loc
	engine.WeekStart = cfg.Weekday()
	engine.Upcoming = schedule.UpcomingDefaults{
		Limit:                cfg.Upcoming.Limit,
		DaysAhead:            cfg.Upcoming.DaysAhead,
		TruncateBeforeFilter: cfg.Upcoming.TruncateBeforeFilter,
	}
	if opts.Now != nil {
		engine.Now = opts.Now
	}

	sys.Records = records
	sys.Engine = engine

	opts.Logger.Info().
		Str("driver", cfg.Storage.Driver).
		Str("key", cfg.Storage.Key).
		Str("retention", fmt.Sprint(rule)).
		Str("mode", string(mode)).
		Str("week_start", engine.WeekStart.String()).
		Str("timezone", loc.String()).
		Msg("engine ready")
	return sys, nil
}

func (s *System) openBlob(cfg config.StorageConfig) error {
	switch cfg.Driver {
	case config.DriverMemory:
		s.Blob = blob.NewMemory()
	case config.DriverFile:
		s.Blob = blob.NewFile(cfg.Path)
	case config.DriverSQLite:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
				return err
			}
		}
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return err
		}
		s.Blob = store
		s.SQLite = store
		s.closers = append(s.closers, store.Close)
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return nil
}
