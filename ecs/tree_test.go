package ecs_test

import (
	"errors"
	"testing"

	"github.com/plus3/archstore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertTree checks that every child lists its parent and that tree membership
// matches reachability from the store root.
func assertTree(t *testing.T, store *ecs.EntityStore) {
	t.Helper()
	root := store.StoreRoot()
	reachable := map[int32]bool{}
	if !root.IsNull() {
		stack := []ecs.Entity{root}
		for len(stack) > 0 {
			e := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			reachable[e.Id()] = true
			stack = append(stack, e.Children()...)
		}
	}
	for e := range store.Entities() {
		for _, child := range e.Children() {
			assert.Equal(t, e, child.Parent(), "parent of %d", child.Id())
		}
		want := ecs.Floating
		if reachable[e.Id()] {
			want = ecs.TreeNode
		}
		assert.Equal(t, want, e.TreeMembership(), "membership of %d", e.Id())
	}
}

func TestTreeMembership(t *testing.T) {
	store := newTestStore()
	root := store.CreateEntity()
	a := store.CreateEntity()
	b := store.CreateEntity()

	store.SetStoreRoot(root.Id())
	assert.Equal(t, root, store.StoreRoot())
	assert.Equal(t, ecs.TreeNode, root.TreeMembership())

	a.AddChild(b)
	assert.Equal(t, ecs.Floating, b.TreeMembership())
	assertTree(t, store)

	root.AddChild(a)
	assert.Equal(t, ecs.TreeNode, a.TreeMembership())
	assert.Equal(t, ecs.TreeNode, b.TreeMembership())
	assertTree(t, store)

	assert.True(t, root.RemoveChild(a))
	assert.Equal(t, ecs.Floating, a.TreeMembership())
	assert.Equal(t, ecs.Floating, b.TreeMembership())
	assert.True(t, a.Parent().IsNull())
	assertTree(t, store)

	assert.False(t, root.RemoveChild(a))
}

func TestAddChild(t *testing.T) {
	store := newTestStore()
	p := store.CreateEntity()
	c1 := store.CreateEntity()
	c2 := store.CreateEntity()

	assert.Equal(t, 0, p.AddChild(c1))
	assert.Equal(t, 1, p.AddChild(c2))
	assert.Equal(t, 0, p.AddChild(c1), "re-adding is a no-op")
	assert.Equal(t, []int32{c1.Id(), c2.Id()}, p.ChildIds())

	t.Run("reparent", func(t *testing.T) {
		q := store.CreateEntity()
		q.AddChild(c1)
		assert.Equal(t, []int32{c2.Id()}, p.ChildIds())
		assert.Equal(t, q, c1.Parent())
		assertTree(t, store)
	})

	t.Run("self", func(t *testing.T) {
		var cycle *ecs.CycleError
		func() {
			defer func() {
				err, _ := recover().(error)
				require.True(t, errors.As(err, &cycle))
			}()
			p.AddChild(p)
		}()
		assert.Equal(t, []int64{int64(p.Id()), int64(p.Id())}, cycle.Chain)
	})

	t.Run("ancestor", func(t *testing.T) {
		grandchild := store.CreateEntity()
		c2.AddChild(grandchild)
		assert.PanicsWithError(t,
			"ecs: dependency cycle in children: 1 -> 5 -> 3 -> 1",
			func() { grandchild.AddChild(p) })
		assert.Equal(t, c2, grandchild.Parent())
		assertTree(t, store)
	})

	t.Run("store root", func(t *testing.T) {
		s := newTestStore()
		root := s.CreateEntity()
		other := s.CreateEntity()
		s.SetStoreRoot(root.Id())
		assert.Panics(t, func() { other.AddChild(root) })
		assert.Panics(t, func() { s.SetStoreRoot(other.Id()) })
	})
}

func TestInsertChild(t *testing.T) {
	store := newTestStore()
	p := store.CreateEntity()
	a := store.CreateEntity()
	b := store.CreateEntity()
	c := store.CreateEntity()

	p.InsertChild(0, a)
	p.InsertChild(0, b)
	p.InsertChild(1, c)
	assert.Equal(t, []int32{b.Id(), c.Id(), a.Id()}, p.ChildIds())

	// existing child moves
	p.InsertChild(0, a)
	assert.Equal(t, []int32{a.Id(), b.Id(), c.Id()}, p.ChildIds())

	assert.Panics(t, func() { p.InsertChild(5, store.CreateEntity()) })
	assert.Panics(t, func() { p.InsertChild(3, a) })
	assertTree(t, store)
}

func TestSetChildNodes(t *testing.T) {
	store := newTestStore()
	root := store.CreateEntity()
	store.SetStoreRoot(root.Id())
	a := store.CreateEntity()
	b := store.CreateEntity()
	c := store.CreateEntity()
	root.AddChild(a)
	root.AddChild(b)

	require.NoError(t, store.SetChildNodes(root.Id(), []int32{c.Id(), a.Id()}))
	assert.Equal(t, []int32{c.Id(), a.Id()}, root.ChildIds())
	assert.True(t, b.Parent().IsNull())
	assert.Equal(t, ecs.Floating, b.TreeMembership())
	assert.Equal(t, ecs.TreeNode, c.TreeMembership())
	assertTree(t, store)

	t.Run("cycle leaves store unchanged", func(t *testing.T) {
		a.AddChild(b)
		d := store.CreateEntity()

		err := store.SetChildNodes(b.Id(), []int32{d.Id(), root.Id()})
		var cycle *ecs.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []int64{int64(root.Id()), int64(b.Id()), int64(a.Id()), int64(root.Id())}, cycle.Chain)

		assert.Empty(t, b.ChildIds())
		assert.True(t, d.Parent().IsNull())
		assertTree(t, store)
	})

	t.Run("duplicates", func(t *testing.T) {
		err := store.SetChildNodes(c.Id(), []int32{b.Id(), b.Id()})
		assert.ErrorIs(t, err, ecs.ErrInvalidTree)
	})

	t.Run("dead child", func(t *testing.T) {
		err := store.SetChildNodes(c.Id(), []int32{999})
		assert.ErrorIs(t, err, ecs.ErrNullEntity)
	})
}

func TestDeleteEntityOrphansChildren(t *testing.T) {
	store := newTestStore()
	root := store.CreateEntity()
	store.SetStoreRoot(root.Id())
	mid := store.CreateEntity()
	leaf := store.CreateEntity()
	leaf2 := store.CreateEntity()
	root.AddChild(mid)
	mid.AddChild(leaf)
	leaf.AddChild(leaf2)

	mid.DeleteEntity()

	assert.Empty(t, root.ChildIds())
	assert.False(t, leaf.IsNull())
	assert.True(t, leaf.Parent().IsNull())
	assert.Equal(t, ecs.Floating, leaf.TreeMembership())
	assert.Equal(t, ecs.Floating, leaf2.TreeMembership())
	assert.Equal(t, leaf, leaf2.Parent())
	assertTree(t, store)

	root.DeleteEntity()
	assert.True(t, store.StoreRoot().IsNull())
}
