package ecs

import (
	"context"
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

// storeBinder is implemented by the system fields the scheduler binds to its
// store on registration: Query and Singleton.
type storeBinder interface {
	Init(store *EntityStore)
}

var storeBinderType = reflect.TypeFor[storeBinder]()

type systemEntry struct {
	system System
	timing SystemStats
}

func (e *systemEntry) record(d time.Duration) {
	t := &e.timing
	if t.ExecutionCount == 0 || d < t.MinDuration {
		t.MinDuration = d
	}
	t.MaxDuration = max(t.MaxDuration, d)
	t.ExecutionCount++
	t.LastDuration = d
	t.TotalDuration += d
}

// Scheduler manages and executes systems in registration order. Structural
// changes queued on the frame's Commands are applied after the last system ran.
type Scheduler struct {
	store   *EntityStore
	entries []*systemEntry
	logger  zerolog.Logger
}

// NewScheduler creates a new scheduler for the given store.
func NewScheduler(store *EntityStore) *Scheduler {
	return &Scheduler{
		store:  store,
		logger: store.baseLogger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a system to the scheduler and binds its exported Query and
// Singleton fields to the store.
func (s *Scheduler) Register(system System) {
	bound := s.bindFields(system)

	name := reflect.TypeOf(system).String()
	if t := reflect.TypeOf(system); t.Kind() == reflect.Pointer && t.Elem().Name() != "" {
		name = t.Elem().Name()
	}
	s.entries = append(s.entries, &systemEntry{
		system: system,
		timing: SystemStats{Name: name},
	})
	s.logger.Debug().Str("system", name).Int("index", len(s.entries)-1).
		Int("bound_fields", bound).Msg("registered system")
}

func (s *Scheduler) bindFields(system System) int {
	v := reflect.ValueOf(system)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0
	}

	bound := 0
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}
		if !reflect.PointerTo(field.Type()).Implements(storeBinderType) {
			continue
		}
		field.Addr().Interface().(storeBinder).Init(s.store)
		bound++
	}
	return bound
}

// Once executes all registered systems once with the given delta time.
func (s *Scheduler) Once(dt float64) {
	frame := newUpdateFrame(dt, s.store)

	for _, entry := range s.entries {
		start := time.Now()
		entry.system.Execute(frame)
		entry.record(time.Since(start))
	}

	if n := frame.Commands.Len(); n > 0 {
		s.logger.Trace().Int("commands", n).Msg("flushing frame commands")
	}
	frame.Commands.Flush(s.store)
}

// Run executes all systems at the given interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Err(ctx.Err()).Msg("scheduler stopped")
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.Once(dt)
		}
	}
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.entries),
		Systems:     make([]SystemStats, len(s.entries)),
	}
	for i, entry := range s.entries {
		st := entry.timing
		if st.ExecutionCount > 0 {
			st.AvgDuration = st.TotalDuration / time.Duration(st.ExecutionCount)
		}
		stats.Systems[i] = st
		stats.TotalExecutions += st.ExecutionCount
	}
	return stats
}
