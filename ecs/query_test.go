package ecs_test

import (
	"testing"

	"github.com/plus3/archstore/ecs"
	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)

	store := ecs.NewEntityStore(registry, nil)

	store.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
	store.Spawn(Position{X: 3, Y: 4}, Velocity{DX: 1.0, DY: 1.0})
	store.Spawn(Position{X: 5, Y: 6}, Velocity{DX: 1.5, DY: 1.5}, Health{Current: 100, Max: 100})
	store.Spawn(Position{X: 7, Y: 8})

	query := ecs.NewQuery[struct {
		*Position
		*Velocity
	}](store)

	t.Run("iterates matching entities", func(t *testing.T) {
		assert.Equal(t, 3, query.Count())
		assert.Len(t, query.Archetypes(), 2)

		count := 0
		for range query.Iter() {
			count++
		}
		assert.Equal(t, 3, count)
	})

	t.Run("multiple iterations are consistent", func(t *testing.T) {
		results1 := make(map[ecs.Entity]bool)
		for e := range query.Entities() {
			results1[e] = true
		}
		results2 := make(map[ecs.Entity]bool)
		for e := range query.Entities() {
			results2[e] = true
		}
		assert.Equal(t, results1, results2)
	})

	t.Run("cache picks up new archetypes", func(t *testing.T) {
		e := store.Spawn(Position{}, Health{})
		assert.Equal(t, 3, query.Count())

		ecs.AddComponent(e, Velocity{})
		assert.Equal(t, 4, query.Count())
		assert.Len(t, query.Archetypes(), 2)
	})

	t.Run("mutation through values", func(t *testing.T) {
		for item := range query.Values() {
			item.Position.X += item.Velocity.DX
		}
		found := false
		for item := range query.Values() {
			if item.Position.X == 1.5 {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("get", func(t *testing.T) {
		e := store.Spawn(Position{X: 42})
		assert.Nil(t, query.Get(e))
		ecs.AddComponent(e, Velocity{DX: 1})
		item := query.Get(e)
		assert.NotNil(t, item)
		assert.Equal(t, float32(42), item.Position.X)
	})
}

func TestQueryTags(t *testing.T) {
	store := newTestStore()
	frozen := ecs.TagsOf(ecs.TagTypeOf[Frozen](store.Registry()))

	store.Spawn(Position{}, Velocity{})
	e := store.Spawn(Position{}, Velocity{})

	query := ecs.NewQuery[struct {
		*Position
		*Velocity
	}](store).WithoutTags(frozen)
	assert.Equal(t, 2, query.Count())

	e.AddTags(frozen)
	assert.Equal(t, 1, query.Count())

	frozenOnly := ecs.NewQuery[struct{ *Position }](store).WithTags(frozen)
	assert.Equal(t, 1, frozenOnly.Count())

	// filters survive re-initialisation
	frozenOnly.Init(store)
	assert.Equal(t, 1, frozenOnly.Count())
}

type frozenCounter struct {
	Frozen ecs.Query[struct{ *Position }]
	Thawed ecs.Query[struct{ *Position }]
	counts [2]int
}

func (s *frozenCounter) Execute(*ecs.UpdateFrame) {
	s.counts = [2]int{s.Frozen.Count(), s.Thawed.Count()}
}

func TestQueryTagsBeforeInit(t *testing.T) {
	store := newTestStore()
	frozen := ecs.TagsOf(ecs.TagTypeOf[Frozen](store.Registry()))
	store.Spawn(Position{})
	store.Spawn(Position{}).AddTags(frozen)
	store.Spawn(Position{}).AddTags(frozen)

	sys := &frozenCounter{}
	assert.NotPanics(t, func() {
		sys.Frozen.WithTags(frozen)
		sys.Thawed.WithoutTags(frozen)
	})

	scheduler := ecs.NewScheduler(store)
	scheduler.Register(sys)
	scheduler.Once(0)
	assert.Equal(t, [2]int{2, 1}, sys.counts)
}
