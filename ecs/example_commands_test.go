package ecs_test

import (
	"fmt"

	"github.com/plus3/archstore/ecs"
)

type CleanupSystem struct {
	Entities ecs.Query[struct {
		Entity ecs.Entity
		*Position
		*Health
	}]
}

func (s *CleanupSystem) Execute(frame *ecs.UpdateFrame) {
	deadCount := 0
	for item := range s.Entities.Values() {
		if item.Health.Current <= 0 {
			frame.Commands.DeleteEntity(item.Entity)
			deadCount++
		}
	}
	if deadCount > 0 {
		fmt.Printf("Queued %d dead entities for deletion\n", deadCount)
	}
}

// ExampleCommands demonstrates using command buffers to defer entity mutations.
// Structural changes while iterating would move entities between archetypes under
// the iterator; the Scheduler flushes the buffer at the end of each frame instead.
func ExampleCommands() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Health](registry)
	store := ecs.NewEntityStore(registry, nil)

	store.Spawn(Position{X: 0, Y: 0}, Health{Current: 0, Max: 100})
	store.Spawn(Position{X: 10, Y: 10}, Health{Current: 50, Max: 100})
	store.Spawn(Position{X: 20, Y: 20}, Health{Current: 100, Max: 100})

	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&CleanupSystem{})

	scheduler.Once(1.0)

	fmt.Printf("Remaining entities: %d\n", store.Count())

	// Output:
	// Queued 1 dead entities for deletion
	// Remaining entities: 2
}

type ShootTimer struct {
	TimeUntilShot float32
}

type ShootingSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
		*ShootTimer
	}]
}

func (s *ShootingSystem) Execute(frame *ecs.UpdateFrame) {
	for item := range s.Entities.Values() {
		if item.ShootTimer.TimeUntilShot <= 0 {
			frame.Commands.CreateEntity(nil,
				Position{X: item.Position.X, Y: item.Position.Y},
				Velocity{DX: item.Velocity.DX * 2, DY: item.Velocity.DY * 2},
			)
			fmt.Printf("Spawned projectile at (%.0f, %.0f)\n", item.Position.X, item.Position.Y)
			item.ShootTimer.TimeUntilShot = 10
		}
	}
}

// ExampleCommands_CreateEntity shows using commands to spawn entities during
// iteration, e.g. projectiles created from existing entity state.
func ExampleCommands_CreateEntity() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[ShootTimer](registry)
	store := ecs.NewEntityStore(registry, nil)

	store.Spawn(
		Position{X: 10, Y: 10},
		Velocity{DX: 1, DY: 0},
		ShootTimer{TimeUntilShot: 0},
	)
	store.Spawn(
		Position{X: 20, Y: 20},
		Velocity{DX: 0, DY: 1},
		ShootTimer{TimeUntilShot: 5},
	)

	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&ShootingSystem{})

	scheduler.Once(1.0)

	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](store)
	count := 0
	for range view.Iter() {
		count++
	}
	fmt.Printf("Total entities with velocity: %d\n", count)

	// Output:
	// Spawned projectile at (10, 10)
	// Total entities with velocity: 3
}
