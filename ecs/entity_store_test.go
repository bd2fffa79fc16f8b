package ecs_test

import (
	"testing"

	"github.com/plus3/archstore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityLifecycle(t *testing.T) {
	store := newTestStore()

	e := store.CreateEntity()
	assert.Equal(t, int32(1), e.Id())
	assert.False(t, e.IsNull())
	assert.Equal(t, store.DefaultArchetype(), e.Archetype())

	assert.True(t, ecs.AddComponent(e, Position{X: 1, Y: 2}))
	assert.True(t, ecs.AddComponent(e, Name{Value: "hero"}))

	assert.Equal(t, Position{X: 1, Y: 2}, *ecs.GetComponent[Position](e))
	assert.Equal(t, "hero", ecs.GetComponent[Name](e).Value)
	assert.False(t, ecs.HasComponent[Rotation](e))
	assert.Len(t, e.ComponentTypes(), 2)

	e.DeleteEntity()
	assert.True(t, e.IsNull())
	assert.Equal(t, 0, store.Count())
	assert.PanicsWithError(t, "ecs: entity is null: id 1", func() {
		ecs.GetComponent[Position](e)
	})
}

func TestEntityIds(t *testing.T) {
	store := newTestStore()

	t.Run("sequential", func(t *testing.T) {
		a := store.CreateEntity()
		b := store.CreateEntity()
		assert.Equal(t, a.Id()+1, b.Id())
	})

	t.Run("explicit id", func(t *testing.T) {
		e, err := store.CreateEntityWithId(100)
		require.NoError(t, err)
		assert.Equal(t, int32(100), e.Id())
		assert.GreaterOrEqual(t, store.NodeCapacity(), 101)

		_, err = store.CreateEntityWithId(100)
		assert.ErrorIs(t, err, ecs.ErrIdInUse)

		_, err = store.CreateEntityWithId(0)
		assert.ErrorIs(t, err, ecs.ErrInvalidId)
	})

	t.Run("new id skips live ids", func(t *testing.T) {
		s := newTestStore()
		_, err := s.CreateEntityWithId(1)
		require.NoError(t, err)
		_, err = s.CreateEntityWithId(2)
		require.NoError(t, err)
		assert.Equal(t, int32(3), s.CreateEntity().Id())
	})

	t.Run("node table grows", func(t *testing.T) {
		s := ecs.NewEntityStore(newTestRegistry(), &ecs.StoreConfig{MaxStructIndex: 64, NodeCapacity: 2})
		for i := 0; i < 100; i++ {
			s.CreateEntity()
		}
		assert.Equal(t, 100, s.Count())
		assert.GreaterOrEqual(t, s.NodeCapacity(), 101)
	})
}

func TestAddComponentInPlace(t *testing.T) {
	store := newTestStore()
	e := store.CreateEntity()

	assert.True(t, ecs.AddComponent(e, Position{X: 1}))
	arch := e.Archetype()
	archetypes := len(store.Archetypes())

	assert.False(t, ecs.AddComponent(e, Position{X: 5}))
	assert.Same(t, arch, e.Archetype())
	assert.Len(t, store.Archetypes(), archetypes)
	assert.Equal(t, float32(5), ecs.GetComponent[Position](e).X)
}

func TestRemoveComponent(t *testing.T) {
	store := newTestStore()
	e := store.CreateEntity()
	ecs.AddComponent(e, Position{X: 1})
	ecs.AddComponent(e, Velocity{DX: 2})

	assert.True(t, ecs.RemoveComponent[Position](e))
	assert.False(t, ecs.RemoveComponent[Position](e))
	assert.False(t, ecs.HasComponent[Position](e))
	assert.Equal(t, float32(2), ecs.GetComponent[Velocity](e).DX)

	assert.True(t, ecs.RemoveComponent[Velocity](e))
	assert.Same(t, store.DefaultArchetype(), e.Archetype())
	assert.False(t, e.IsNull())
}

func TestArchetypeRoundTrip(t *testing.T) {
	store := newTestStore()
	e := store.CreateEntity()
	ecs.AddComponent(e, Position{X: 1})
	start := e.Archetype()

	ecs.AddComponent(e, Velocity{DX: 3})
	assert.NotSame(t, start, e.Archetype())
	ecs.RemoveComponent[Velocity](e)

	assert.Same(t, start, e.Archetype())
	assert.Equal(t, float32(1), ecs.GetComponent[Position](e).X)
}

func TestArchetypeIsOrderIndependent(t *testing.T) {
	store := newTestStore()

	a := store.CreateEntity()
	ecs.AddComponent(a, Position{})
	ecs.AddComponent(a, Velocity{})

	b := store.CreateEntity()
	ecs.AddComponent(b, Velocity{})
	ecs.AddComponent(b, Position{})

	assert.Same(t, a.Archetype(), b.Archetype())
	assert.Equal(t, a.Archetype().Hash(), b.Archetype().Hash())
	assert.Equal(t, 2, a.Archetype().EntityCount())
}

func TestSwapRemoveKeepsSlotsConsistent(t *testing.T) {
	store := newTestStore()
	sig := ecs.Signature1[Position](store.Registry())

	a := store.CreateEntityWith(sig)
	b := store.CreateEntityWith(sig)
	c := store.CreateEntityWith(sig)
	ecs.GetComponent[Position](a).X = 1
	ecs.GetComponent[Position](b).X = 2
	ecs.GetComponent[Position](c).X = 3
	assert.Equal(t, int32(2), c.CompIndex())

	b.DeleteEntity()

	assert.Equal(t, int32(1), c.CompIndex())
	assert.Equal(t, []int32{a.Id(), c.Id()}, a.Archetype().EntityIds())
	assert.Equal(t, float32(3), ecs.GetComponent[Position](c).X)
	assert.Equal(t, float32(1), ecs.GetComponent[Position](a).X)
	assert.Equal(t, 2, ecs.HeapOf[Position](a.Archetype()).Len())

	// moving out of an archetype swaps in the same way
	ecs.AddComponent(a, Velocity{})
	assert.Equal(t, int32(0), c.CompIndex())
	assert.Equal(t, float32(3), ecs.GetComponent[Position](c).X)
	assert.Equal(t, float32(1), ecs.GetComponent[Position](a).X)
}

func TestSpawn(t *testing.T) {
	store := newTestStore()

	e := store.Spawn(Position{X: 1, Y: 2}, &Velocity{DX: 3}, Score(7))
	assert.Equal(t, Position{X: 1, Y: 2}, *ecs.GetComponent[Position](e))
	assert.Equal(t, float32(3), ecs.GetComponent[Velocity](e).DX)
	assert.Equal(t, Score(7), *ecs.GetComponent[Score](e))

	archetypes := len(store.Archetypes())
	other := store.Spawn(Score(1), Velocity{}, Position{})
	assert.Same(t, e.Archetype(), other.Archetype())
	assert.Len(t, store.Archetypes(), archetypes)

	assert.Panics(t, func() {
		store.Spawn(struct{ Unregistered int }{})
	})
}

func TestComponentAny(t *testing.T) {
	store := newTestStore()
	e := store.Spawn(Health{Current: 5, Max: 10})
	ct := ecs.ComponentTypeOf[Health](store.Registry())

	value := store.ComponentAny(e.Id(), ct)
	require.IsType(t, &Health{}, value)
	value.(*Health).Current = 6
	assert.Equal(t, 6, ecs.GetComponent[Health](e).Current)

	assert.Nil(t, store.ComponentAny(e.Id(), ecs.ComponentTypeOf[Position](store.Registry())))

	assert.True(t, store.AddComponentValue(e.Id(), &Position{X: 9}))
	assert.Equal(t, float32(9), ecs.GetComponent[Position](e).X)
	assert.True(t, store.RemoveComponentType(e.Id(), ct))
	assert.False(t, ecs.HasComponent[Health](e))
}

func TestTryGetComponent(t *testing.T) {
	store := newTestStore()
	e := store.Spawn(Position{X: 4})

	pos, ok := ecs.TryGetComponent[Position](e)
	assert.True(t, ok)
	assert.Equal(t, float32(4), pos.X)

	vel, ok := ecs.TryGetComponent[Velocity](e)
	assert.False(t, ok)
	assert.Nil(t, vel)

	assert.PanicsWithError(t, "ecs: entity has no such component: ecs_test.Velocity on entity 1", func() {
		ecs.GetComponent[Velocity](e)
	})
}

func TestStoreMismatch(t *testing.T) {
	registry := newTestRegistry()
	s1 := ecs.NewEntityStore(registry, nil)
	s2 := ecs.NewEntityStore(registry, nil)

	a := s1.CreateEntity()
	b := s2.CreateEntity()

	assert.Panics(t, func() { a.AddChild(b) })
	assert.Panics(t, func() {
		s1.CreateEntityInArchetype(s2.GetArchetype(ecs.Signature1[Position](registry), ecs.Tags{}))
	})
}

func TestNullEntity(t *testing.T) {
	var e ecs.Entity
	assert.True(t, e.IsNull())
	assert.Panics(t, func() { e.Archetype() })

	store := newTestStore()
	assert.True(t, store.GetEntityById(42).IsNull())
	_, ok := store.GetNode(42)
	assert.False(t, ok)
	assert.Panics(t, func() { store.DeleteEntity(42) })
}

func TestEntitiesIterator(t *testing.T) {
	store := newTestStore()
	for i := 0; i < 5; i++ {
		store.CreateEntity()
	}
	store.GetEntityById(3).DeleteEntity()

	var ids []int32
	for e := range store.Entities() {
		ids = append(ids, e.Id())
	}
	assert.Equal(t, []int32{1, 2, 4, 5}, ids)
}

func TestTooManyStructTypes(t *testing.T) {
	registry := newTestRegistry()
	assert.Panics(t, func() {
		ecs.NewEntityStore(registry, &ecs.StoreConfig{MaxStructIndex: 3})
	})

	store := ecs.NewEntityStore(ecs.NewComponentRegistry(), &ecs.StoreConfig{MaxStructIndex: 2})
	reg := store.Registry()
	ecs.RegisterComponent[Position](reg)
	ecs.RegisterComponent[Velocity](reg)
	ecs.RegisterComponent[Name](reg)

	e := store.CreateEntity()
	ecs.AddComponent(e, Position{})
	assert.PanicsWithError(t, "ecs: too many struct component types: Name has structIndex 3, max_struct_index 2", func() {
		ecs.AddComponent(e, Name{})
	})
}
