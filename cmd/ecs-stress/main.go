package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/plus3/archstore/ecs"
	"github.com/rs/zerolog"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	groupCount := flag.Int("groups", 64, "The number of group entities members are attached to.")
	configPath := flag.String("config", "", "Optional YAML store config.")
	dumpPath := flag.String("dump", "", "Write the final store as data nodes to this YAML file.")
	seed := flag.Uint64("seed", 1, "Seed for the simulation's random choices.")
	verbose := flag.Bool("v", false, "Enable debug logging.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	config := ecs.DefaultStoreConfig()
	if *configPath != "" {
		var err error
		if config, err = ecs.LoadStoreConfig(*configPath); err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load store config")
		}
	}
	if *groupCount < 1 {
		logger.Fatal().Int("groups", *groupCount).Msg("at least one group is required")
	}

	w := newWorld(*seed)
	store := ecs.NewEntityStore(w.registry, config)
	store.InjectLogger(&logger)

	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&movementSystem{})
	scheduler.Register(&lifetimeSystem{world: w})
	scheduler.Register(&churnSystem{world: w})
	scheduler.Register(&brainSystem{})

	logger.Info().Int("entities", *entityCount).Int("groups", *groupCount).
		Str("pid_type", config.PidType.String()).Msg("populating store")
	populateStart := time.Now()
	w.populate(store, *entityCount, *groupCount)
	logger.Info().Dur("took", time.Since(populateStart)).Int("archetypes", len(store.Archetypes())).
		Msg("population complete")

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Groups:         *groupCount,
		Systems:        scheduler.GetStats().SystemCount,
		Config:         *config,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info().Dur("duration", *duration).Msg("running simulation")
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			scheduler.Once(deltaTime.Seconds())
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.Store = store.CollectStats()
	report.Scheduler = scheduler.GetStats()
	logger.Info().Int64("updates", report.TotalUpdates).Int("entities", store.Count()).
		Msg("simulation finished")

	if *dumpPath != "" {
		if err := dumpStore(store, *dumpPath); err != nil {
			logger.Fatal().Err(err).Str("path", *dumpPath).Msg("failed to dump store")
		}
		logger.Info().Str("path", *dumpPath).Msg("wrote data nodes")
	}

	if err := report.Generate(os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("failed to generate report")
	}
}

func dumpStore(store *ecs.EntityStore, path string) error {
	nodes, err := store.ToDataNodes()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ecs.WriteDataNodes(f, nodes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
