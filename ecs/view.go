package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

var entityType = reflect.TypeFor[Entity]()

// View represents a query for entities with a specific combination of components.
// The type T should be a struct with embedded or named pointer fields for each
// component type. Named fields can be marked as optional using the
// `ecs:"optional"` struct tag. A field of type Entity receives the entity handle.
type View[T any] struct {
	store       *EntityStore
	types       []*ComponentType
	optional    []bool
	fieldOffset []uintptr
	entityField uintptr
	hasEntity   bool
	with        Tags
	without     Tags
}

// NewView creates a new view for the given struct type.
// Embedded fields are always required.
func NewView[T any](store *EntityStore) *View[T] {
	var zero T
	structType := reflect.TypeOf(zero)

	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{store: store}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldType := field.Type

		if fieldType == entityType {
			v.entityField = field.Offset
			v.hasEntity = true
			continue
		}
		if fieldType.Kind() != reflect.Pointer {
			panic("View struct fields must be pointer types or Entity")
		}

		ct := store.registry.mustComponent(fieldType.Elem())
		v.types = append(v.types, ct)
		v.fieldOffset = append(v.fieldOffset, field.Offset)

		// Embedded fields (field.Anonymous) are always required
		isOptional := false
		if !field.Anonymous {
			if tag := field.Tag.Get("ecs"); tag != "" {
				if tag != "optional" {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
				isOptional = true
			}
		}
		v.optional = append(v.optional, isOptional)
	}
	return v
}

// WithTags restricts the view to entities carrying all of tags.
func (v *View[T]) WithTags(tags Tags) *View[T] {
	v.with = v.with.union(tags)
	return v
}

// WithoutTags excludes entities carrying any of tags.
func (v *View[T]) WithoutTags(tags Tags) *View[T] {
	v.without = v.without.union(tags)
	return v
}

// Fill populates the provided struct pointer with component pointers of e.
// Returns false if e is null, filtered out by tags or misses a required component.
// Optional components are set to nil if not present.
func (v *View[T]) Fill(e Entity, ptr *T) bool {
	if e.store != v.store || e.IsNull() {
		return false
	}
	node := &v.store.nodes[e.id]
	if !v.matchesArchetype(node.archetype) {
		return false
	}
	structPtr := unsafe.Pointer(ptr)
	for i, ct := range v.types {
		fieldPtr := unsafe.Add(structPtr, v.fieldOffset[i])
		if heap := node.archetype.heapOf(ct.structIndex); heap != nil {
			*(*unsafe.Pointer)(fieldPtr) = heap.pointer(int(node.compIndex))
		} else {
			*(*unsafe.Pointer)(fieldPtr) = nil
		}
	}
	if v.hasEntity {
		*(*Entity)(unsafe.Add(structPtr, v.entityField)) = e
	}
	return true
}

// Get returns a populated view struct for e, or nil if e does not match.
func (v *View[T]) Get(e Entity) *T {
	var result T
	if !v.Fill(e, &result) {
		return nil
	}
	return &result
}

// matchesArchetype checks the required components and tag filters of the view.
func (v *View[T]) matchesArchetype(a *Archetype) bool {
	for i, ct := range v.types {
		if !v.optional[i] && a.heapOf(ct.structIndex) == nil {
			return false
		}
	}
	return a.tags.HasAll(v.with) && !a.tags.HasAny(v.without)
}

// iterArchetype yields the view struct of every entity in a. It returns false if
// yield stopped the iteration.
func (v *View[T]) iterArchetype(a *Archetype, yield func(Entity, T) bool) bool {
	if len(a.entityIds) == 0 {
		return true
	}
	heaps := make([]structHeap, len(v.types))
	for i, ct := range v.types {
		heaps[i] = a.heapOf(ct.structIndex)
	}

	var result T
	resultPtr := unsafe.Pointer(&result)
	for slot, id := range a.entityIds {
		for i, heap := range heaps {
			fieldPtr := unsafe.Add(resultPtr, v.fieldOffset[i])
			if heap == nil {
				*(*unsafe.Pointer)(fieldPtr) = nil
			} else {
				*(*unsafe.Pointer)(fieldPtr) = heap.pointer(slot)
			}
		}
		entity := Entity{store: a.store, id: id}
		if v.hasEntity {
			*(*Entity)(unsafe.Add(resultPtr, v.entityField)) = entity
		}
		if !yield(entity, result) {
			return false
		}
	}
	return true
}

// Iter returns an iterator over all matching entities. Structural changes while
// iterating must be deferred through Commands.
func (v *View[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		for _, a := range v.store.archetypes {
			if !v.matchesArchetype(a) {
				continue
			}
			if !v.iterArchetype(a, yield) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Spawn creates a new entity with the components pointed to by data and the
// view's required tags. Nil optional fields are skipped.
func (v *View[T]) Spawn(data T) Entity {
	structPtr := unsafe.Pointer(&data)
	types := make([]*ComponentType, 0, len(v.types))
	values := make([]unsafe.Pointer, 0, len(v.types))
	for i, ct := range v.types {
		componentPtr := *(*unsafe.Pointer)(unsafe.Add(structPtr, v.fieldOffset[i]))
		if componentPtr == nil {
			if !v.optional[i] {
				panic("required component is nil in View.Spawn")
			}
			continue
		}
		types = append(types, ct)
		values = append(values, componentPtr)
	}

	arch := v.store.GetArchetype(v.store.registry.SignatureOf(types...), v.with)
	e := v.store.CreateEntityInArchetype(arch)
	node := &v.store.nodes[e.id]
	for i, ct := range types {
		value := reflect.NewAt(ct.typ, values[i]).Interface()
		arch.heapOf(ct.structIndex).setAny(int(node.compIndex), value)
	}
	return e
}
