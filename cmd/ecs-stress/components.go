package main

import (
	"math/rand/v2"

	"github.com/plus3/archstore/ecs"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int
	Max     int
}

type Lifetime struct {
	Remaining float64
}

type Group struct {
	Name string
}

type Burning struct{}
type Marked struct{}

// Brain is stored as a script; it is never part of an archetype.
type Brain struct {
	Decisions int
}

type world struct {
	registry *ecs.ComponentRegistry
	burning  *ecs.TagType
	marked   *ecs.TagType
	health   *ecs.ComponentType
	rng      *rand.Rand
	groups   []ecs.Entity
}

func newWorld(seed uint64) *world {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	w := &world{
		registry: registry,
		health:   ecs.RegisterComponent[Health](registry),
		rng:      rand.New(rand.NewPCG(seed, seed^0x5bd1e995)),
	}
	ecs.RegisterComponent[Lifetime](registry)
	ecs.RegisterComponent[Group](registry)
	w.burning = ecs.RegisterTag[Burning](registry)
	w.marked = ecs.RegisterTag[Marked](registry)
	ecs.RegisterScript[Brain](registry)
	return w
}

// populate builds root -> groups -> members.
func (w *world) populate(store *ecs.EntityStore, entities, groups int) {
	root := store.Spawn(Group{Name: "root"})
	store.SetStoreRoot(root.Id())
	for i := range groups {
		g := store.Spawn(Group{Name: "group"}, Position{X: float32(i)})
		root.AddChild(g)
		w.groups = append(w.groups, g)
	}
	for range entities {
		e := w.spawnMember(store)
		w.groups[w.rng.IntN(len(w.groups))].AddChild(e)
	}
}

func (w *world) spawnMember(store *ecs.EntityStore) ecs.Entity {
	e := store.Spawn(w.memberComponents()...)
	if w.rng.IntN(8) == 0 {
		ecs.AddScript(e, &Brain{})
	}
	return e
}

func (w *world) memberComponents() []any {
	components := []any{
		Position{X: w.rng.Float32() * 100, Y: w.rng.Float32() * 100},
		Lifetime{Remaining: 0.5 + w.rng.Float64()*2},
	}
	if w.rng.IntN(2) == 0 {
		components = append(components, Velocity{DX: w.rng.Float32() - 0.5, DY: w.rng.Float32() - 0.5})
	}
	if w.rng.IntN(3) == 0 {
		components = append(components, Health{Current: 10, Max: 10})
	}
	return components
}

type movementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
}

func (s *movementSystem) Execute(frame *ecs.UpdateFrame) {
	dt := float32(frame.DeltaTime)
	for item := range s.Entities.Values() {
		item.Position.X += item.Velocity.DX * dt
		item.Position.Y += item.Velocity.DY * dt
	}
}

// lifetimeSystem deletes expired members and spawns a replacement under a
// random group, keeping the population stable.
type lifetimeSystem struct {
	world    *world
	Entities ecs.Query[struct {
		Entity ecs.Entity
		*Lifetime
	}]
}

func (s *lifetimeSystem) Execute(frame *ecs.UpdateFrame) {
	for item := range s.Entities.Values() {
		item.Lifetime.Remaining -= frame.DeltaTime
		if item.Lifetime.Remaining > 0 {
			continue
		}
		frame.Commands.DeleteEntity(item.Entity)
		group := s.world.groups[s.world.rng.IntN(len(s.world.groups))]
		frame.Commands.CreateChild(group, nil, s.world.memberComponents()...)
	}
}

// churnSystem toggles components and tags on a fraction of the members so
// entities keep moving between archetypes.
type churnSystem struct {
	world    *world
	Entities ecs.Query[struct {
		Entity ecs.Entity
		*Position
		Health *Health `ecs:"optional"`
	}]
}

func (s *churnSystem) Execute(frame *ecs.UpdateFrame) {
	w := s.world
	for item := range s.Entities.Values() {
		switch w.rng.IntN(16) {
		case 0:
			if item.Health == nil {
				frame.Commands.AddComponent(item.Entity, Health{Current: 5, Max: 10})
			} else {
				frame.Commands.RemoveComponent(item.Entity, w.health)
			}
		case 1:
			if item.Entity.Tags().Has(w.burning) {
				frame.Commands.RemoveTags(item.Entity, ecs.TagsOf(w.burning))
			} else {
				frame.Commands.AddTags(item.Entity, ecs.TagsOf(w.burning))
			}
		case 2:
			frame.Commands.AddTags(item.Entity, ecs.TagsOf(w.marked))
		}
	}
}

type brainSystem struct {
	Entities ecs.Query[struct {
		Entity ecs.Entity
		*Position
	}]
}

func (s *brainSystem) Execute(frame *ecs.UpdateFrame) {
	for item := range s.Entities.Values() {
		if brain := ecs.GetScript[Brain](item.Entity); brain != nil {
			brain.Decisions++
		}
	}
}
