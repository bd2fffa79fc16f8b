package ecs

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// EntityUpdater patches the stored location of an entity whose slot or archetype
// changed during a structural move. The node table and EntityRef caches each
// provide one, so the move algorithm does not depend on the handle representation.
type EntityUpdater interface {
	UpdateEntity(id int32, archetype *Archetype, compIndex int32)
}

// Archetype holds all entities sharing an identical component set and tag set.
// Its shape never changes after creation.
type Archetype struct {
	store     *EntityStore
	archIndex int
	types     []*ComponentType
	heaps     []structHeap
	heapMap   []uint16 // structIndex -> heap index + 1, 0 = absent
	tags      Tags
	typeHash  uint64
	hash      uint64
	entityIds []int32
}

// newArchetype creates an archetype for types, which must be sorted by structIndex
// and free of duplicates.
func newArchetype(store *EntityStore, types []*ComponentType, tags Tags) *Archetype {
	a := &Archetype{
		store: store,
		types: types,
		heaps: make([]structHeap, len(types)),
		tags:  tags,
	}
	maxIndex := 0
	for _, ct := range types {
		a.typeHash ^= ct.typeHash
		maxIndex = max(maxIndex, ct.structIndex)
	}
	a.heapMap = make([]uint16, maxIndex+1)
	for i, ct := range types {
		a.heaps[i] = ct.newHeap(0)
		a.heapMap[ct.structIndex] = uint16(i + 1)
	}
	a.hash = a.typeHash ^ tags.hash(store.registry)
	return a
}

// ArchIndex returns the position of the archetype in the store's archetype table.
func (a *Archetype) ArchIndex() int { return a.archIndex }

// TypeHash returns the XOR of all component type hashes.
func (a *Archetype) TypeHash() uint64 { return a.typeHash }

// Hash returns the lookup hash: TypeHash combined with the tag hashes.
func (a *Archetype) Hash() uint64 { return a.hash }

// Tags returns the tag set of the archetype.
func (a *Archetype) Tags() Tags { return a.tags }

// Store returns the owning store.
func (a *Archetype) Store() *EntityStore { return a.store }

// ComponentTypes returns the component types in structIndex order.
func (a *Archetype) ComponentTypes() []*ComponentType { return a.types }

// EntityCount returns the number of entities in the archetype.
func (a *Archetype) EntityCount() int { return len(a.entityIds) }

// EntityIds returns the entity ids in slot order. The slice must not be modified
// and is invalidated by the next structural change.
func (a *Archetype) EntityIds() []int32 { return a.entityIds }

// Entities iterates the entities of the archetype in slot order.
func (a *Archetype) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, id := range a.entityIds {
			if !yield(Entity{store: a.store, id: id}) {
				return
			}
		}
	}
}

// HasComponent reports whether the archetype stores ct.
func (a *Archetype) HasComponent(ct *ComponentType) bool {
	return a.heapOf(ct.structIndex) != nil
}

// HeapOf returns the heap of T in a, or nil if a does not store T.
func HeapOf[T any](a *Archetype) *StructHeap[T] {
	ct := ComponentTypeOf[T](a.store.registry)
	h := a.heapOf(ct.structIndex)
	if h == nil {
		return nil
	}
	return h.(*StructHeap[T])
}

func (a *Archetype) heapOf(structIndex int) structHeap {
	if structIndex >= len(a.heapMap) || structIndex <= 0 {
		return nil
	}
	idx := a.heapMap[structIndex]
	if idx == 0 {
		return nil
	}
	return a.heaps[idx-1]
}

// AddEntity appends a zero-valued slot for id to every heap and returns the slot.
func (a *Archetype) AddEntity(id int32) int32 {
	slot := int32(len(a.entityIds))
	a.entityIds = append(a.entityIds, id)
	for _, h := range a.heaps {
		if h.appendDefault() != int(slot) {
			panic(invariant("archetype %s heap %s out of step", a, h.componentType()))
		}
	}
	return slot
}

// MoveEntityTo moves entity id from fromSlot into target. Components present in
// both archetypes are copied; components only in target stay zero. The last entity
// of a is swapped into the vacated slot. The updater is called for both the moved
// entity and the swapped entity. Returns the slot of id in target.
func (a *Archetype) MoveEntityTo(id int32, fromSlot int32, target *Archetype, updater EntityUpdater) int32 {
	toSlot := target.AddEntity(id)
	for _, src := range a.heaps {
		if dst := target.heapOf(src.componentType().structIndex); dst != nil {
			src.copyTo(int(fromSlot), dst, int(toSlot))
		}
	}
	a.moveLastComponentsTo(fromSlot, updater)
	updater.UpdateEntity(id, target, toSlot)
	return toSlot
}

// moveLastComponentsTo fills removedSlot with the last entity and shrinks every
// heap by one.
func (a *Archetype) moveLastComponentsTo(removedSlot int32, updater EntityUpdater) {
	last := int32(len(a.entityIds) - 1)
	if removedSlot < 0 || removedSlot > last {
		panic(invariant("archetype %s slot %d out of range", a, removedSlot))
	}
	for _, h := range a.heaps {
		if h.removeSwapLast(int(removedSlot)) != int(last) {
			panic(invariant("archetype %s heap %s count mismatch", a, h.componentType()))
		}
	}
	if removedSlot != last {
		movedId := a.entityIds[last]
		a.entityIds[removedSlot] = movedId
		updater.UpdateEntity(movedId, a, removedSlot)
	}
	a.entityIds = a.entityIds[:last]
}

// hasShape reports whether a holds exactly the components of base plus add minus
// remove, and exactly tags. add must not be in base and remove must be in base.
func (a *Archetype) hasShape(base *Archetype, add, remove *ComponentType, tags Tags) bool {
	want := len(base.types)
	if add != nil {
		want++
	}
	if remove != nil {
		want--
	}
	if len(a.types) != want || a.tags != tags {
		return false
	}
	if add != nil && a.heapOf(add.structIndex) == nil {
		return false
	}
	for _, ct := range base.types {
		if ct != remove && a.heapOf(ct.structIndex) == nil {
			return false
		}
	}
	return true
}

// hasTypes reports whether a holds exactly types (duplicate free) and tags.
func (a *Archetype) hasTypes(types []*ComponentType, tags Tags) bool {
	if len(a.types) != len(types) || a.tags != tags {
		return false
	}
	for _, ct := range types {
		if a.heapOf(ct.structIndex) == nil {
			return false
		}
	}
	return true
}

// hasAll reports whether a stores every type in types.
func (a *Archetype) hasAll(types []*ComponentType) bool {
	for _, ct := range types {
		if a.heapOf(ct.structIndex) == nil {
			return false
		}
	}
	return true
}

// shapeWith returns the sorted type list of a with add included and remove excluded.
func (a *Archetype) shapeWith(add, remove *ComponentType) []*ComponentType {
	types := make([]*ComponentType, 0, len(a.types)+1)
	for _, ct := range a.types {
		if ct != remove {
			types = append(types, ct)
		}
	}
	if add != nil {
		types = append(types, add)
		slices.SortFunc(types, byStructIndex)
	}
	return types
}

func byStructIndex(x, y *ComponentType) int {
	return x.structIndex - y.structIndex
}

func (a *Archetype) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, ct := range a.types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ct.key)
	}
	for _, idx := range a.tags.Indexes() {
		if sb.Len() > 1 {
			sb.WriteString(", ")
		}
		sb.WriteString("#")
		sb.WriteString(a.store.registry.tags[idx].key)
	}
	sb.WriteString("]")
	return fmt.Sprintf("%s entities: %d", sb.String(), len(a.entityIds))
}
