package ecs

import "iter"

// Query wraps a View with a cache of matching archetypes. The cache is rebuilt
// when the store's archetype table grows; archetypes are never removed, so a
// grown table is the only way the match set can change.
type Query[T any] struct {
	view               *View[T]
	store              *EntityStore
	with, without      Tags
	cachedArchetypes   []*Archetype
	lastArchetypeCount int
}

// NewQuery creates a new Query with archetype-level caching.
func NewQuery[T any](store *EntityStore) *Query[T] {
	q := &Query[T]{}
	q.Init(store)
	return q
}

// Init initializes or re-initializes the Query with a store.
// Called by the Scheduler during system registration. Tag filters set before
// Init are kept.
func (q *Query[T]) Init(store *EntityStore) {
	view := NewView[T](store)
	view.with, view.without = q.with, q.without
	q.view = view
	q.store = store
	q.cachedArchetypes = nil
	q.lastArchetypeCount = -1
}

// WithTags restricts the query to entities carrying all of tags.
func (q *Query[T]) WithTags(tags Tags) *Query[T] {
	q.with = q.with.union(tags)
	if q.view != nil {
		q.view.WithTags(tags)
	}
	q.lastArchetypeCount = -1
	return q
}

// WithoutTags excludes entities carrying any of tags.
func (q *Query[T]) WithoutTags(tags Tags) *Query[T] {
	q.without = q.without.union(tags)
	if q.view != nil {
		q.view.WithoutTags(tags)
	}
	q.lastArchetypeCount = -1
	return q
}

// Archetypes returns the archetypes matching the query.
func (q *Query[T]) Archetypes() []*Archetype {
	if count := len(q.store.archetypes); count != q.lastArchetypeCount {
		q.cachedArchetypes = q.cachedArchetypes[:0]
		for _, a := range q.store.archetypes {
			if q.view.matchesArchetype(a) {
				q.cachedArchetypes = append(q.cachedArchetypes, a)
			}
		}
		q.lastArchetypeCount = count
	}
	return q.cachedArchetypes
}

// Count returns the number of matching entities.
func (q *Query[T]) Count() int {
	n := 0
	for _, a := range q.Archetypes() {
		n += len(a.entityIds)
	}
	return n
}

// Get returns the view struct of e, or nil if e does not match.
func (q *Query[T]) Get(e Entity) *T {
	return q.view.Get(e)
}

// Iter returns an iterator over entities and component data.
func (q *Query[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		for _, a := range q.Archetypes() {
			if !q.view.iterArchetype(a, yield) {
				return
			}
		}
	}
}

// Values returns an iterator over component data only.
func (q *Query[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range q.Iter() {
			if !yield(item) {
				return
			}
		}
	}
}

// Entities returns an iterator over the matching entities.
func (q *Query[T]) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for e := range q.Iter() {
			if !yield(e) {
				return
			}
		}
	}
}
