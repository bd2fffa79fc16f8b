package ecs

import (
	"reflect"
	"runtime"
	"sync/atomic"
	"weak"
)

// EntityRef is an object handle caching the archetype and slot of an entity.
// The store keeps the cache current across structural moves and clears it when
// the entity is deleted. At most one EntityRef exists per live entity.
type EntityRef struct {
	entity    Entity
	archetype *Archetype
	compIndex int32
}

// Entity returns the referenced entity.
func (r *EntityRef) Entity() Entity { return r.entity }

// Archetype returns the cached archetype, nil once the entity is deleted.
func (r *EntityRef) Archetype() *Archetype { return r.archetype }

// CompIndex returns the cached slot.
func (r *EntityRef) CompIndex() int32 { return r.compIndex }

// IsValid reports whether the entity is still alive.
func (r *EntityRef) IsValid() bool { return r != nil && r.archetype != nil }

// CreateEntityRef returns the EntityRef of id, creating it if needed.
func (s *EntityStore) CreateEntityRef(id int32) *EntityRef {
	node := s.liveNode(id)
	if wp, ok := s.refs.Get(id); ok {
		if ref := wp.Value(); ref != nil {
			return ref
		}
		s.refs.Del(id)
	}
	ref := &EntityRef{
		entity:    Entity{store: s, id: id},
		archetype: node.archetype,
		compIndex: node.compIndex,
	}
	s.refs.Put(id, weak.Make(ref))
	runtime.AddCleanup(ref, func(collected *atomic.Int32) { collected.Add(1) }, &s.collectedRefs)
	return ref
}

// pruneRefs drops the entries of EntityRefs that were garbage collected.
func (s *EntityStore) pruneRefs() {
	var dead []int32
	for id, wp := range s.refs.All() {
		if wp.Value() == nil {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		s.refs.Del(id)
	}
}

// ResolveEntityRef returns the entity of ref if it is still alive.
func (s *EntityStore) ResolveEntityRef(ref *EntityRef) (Entity, bool) {
	if !ref.IsValid() || ref.entity.store != s {
		return Entity{}, false
	}
	return ref.entity, true
}

// InvalidateEntityRef invalidates ref and drops it from the store's cache. The
// entity itself is not affected.
func (s *EntityStore) InvalidateEntityRef(ref *EntityRef) bool {
	if !ref.IsValid() || ref.entity.store != s {
		return false
	}
	s.refs.Del(ref.entity.id)
	ref.archetype = nil
	return true
}

// RefComponent returns the component T of the referenced entity using the cached
// slot, or nil if the ref is invalid or the entity has no T.
func RefComponent[T any](ref *EntityRef) *T {
	if !ref.IsValid() {
		return nil
	}
	ct := ref.archetype.store.registry.mustComponent(reflect.TypeFor[T]())
	heap := ref.archetype.heapOf(ct.structIndex)
	if heap == nil {
		return nil
	}
	return heap.(*StructHeap[T]).Get(int(ref.compIndex))
}
