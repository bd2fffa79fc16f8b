package ecs

import (
	"fmt"
	"reflect"
)

// Entity is a lightweight handle to an entity of an EntityStore. Two handles are
// equal if they refer to the same store and id. A handle becomes null when the
// entity is deleted; accessing components of a null entity panics.
type Entity struct {
	store *EntityStore
	id    int32
}

// Id returns the entity id.
func (e Entity) Id() int32 { return e.id }

// Store returns the owning store.
func (e Entity) Store() *EntityStore { return e.store }

// IsNull reports whether the entity does not exist.
func (e Entity) IsNull() bool {
	return e.store == nil || !e.store.isAlive(e.id)
}

// Pid returns the permanent id of the entity.
func (e Entity) Pid() int64 { return e.node().pid }

// Archetype returns the current archetype of the entity.
func (e Entity) Archetype() *Archetype { return e.node().archetype }

// CompIndex returns the slot of the entity within its archetype.
func (e Entity) CompIndex() int32 { return e.node().compIndex }

// Tags returns the tags of the entity.
func (e Entity) Tags() Tags { return e.node().archetype.tags }

// ComponentTypes returns the component types of the entity in structIndex order.
func (e Entity) ComponentTypes() []*ComponentType { return e.node().archetype.types }

// Parent returns the parent entity. It is null for the store root and floating roots.
func (e Entity) Parent() Entity {
	parentId := e.node().parentId
	if parentId <= 0 {
		return Entity{}
	}
	return Entity{store: e.store, id: parentId}
}

// ChildIds returns the ids of the children. The slice must not be modified.
func (e Entity) ChildIds() []int32 { return e.node().childIds }

// ChildCount returns the number of children.
func (e Entity) ChildCount() int { return len(e.node().childIds) }

// Children returns handles of the children in order.
func (e Entity) Children() []Entity {
	ids := e.node().childIds
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = Entity{store: e.store, id: id}
	}
	return out
}

// TreeMembership returns whether the entity is reachable from the store root.
func (e Entity) TreeMembership() TreeMembership {
	if e.node().flags&NodeTreeNode != 0 {
		return TreeNode
	}
	return Floating
}

// AddChild appends child to the children of e and returns its index.
func (e Entity) AddChild(child Entity) int {
	e.checkStore().checkOwner(child)
	return e.store.AddChild(e.id, child.id)
}

// InsertChild inserts child at index into the children of e.
func (e Entity) InsertChild(index int, child Entity) {
	e.checkStore().checkOwner(child)
	e.store.InsertChild(e.id, child.id, index)
}

// RemoveChild detaches child from e.
func (e Entity) RemoveChild(child Entity) bool {
	e.checkStore().checkOwner(child)
	return e.store.RemoveChild(e.id, child.id)
}

// DeleteEntity deletes the entity. Its children become floating.
func (e Entity) DeleteEntity() {
	e.checkStore().DeleteEntity(e.id)
}

func (e Entity) String() string {
	if e.IsNull() {
		return fmt.Sprintf("id: %d  (detached)", e.id)
	}
	return fmt.Sprintf("id: %d  %s", e.id, e.node().archetype)
}

func (e Entity) checkStore() *EntityStore {
	if e.store == nil {
		panic(nullEntity(e.id))
	}
	return e.store
}

func (e Entity) node() *EntityNode {
	return e.checkStore().liveNode(e.id)
}

// AddComponent sets the component T of e to value. It returns true if the
// component was added, false if an existing value was replaced in place.
func AddComponent[T any](e Entity, value T) bool {
	ct := e.checkStore().registry.mustComponent(reflect.TypeFor[T]())
	heap, slot, added := e.store.addComponent(e.id, ct)
	heap.(*StructHeap[T]).Set(int(slot), value)
	return added
}

// RemoveComponent removes the component T. It returns false if e has no T.
func RemoveComponent[T any](e Entity) bool {
	ct := e.checkStore().registry.mustComponent(reflect.TypeFor[T]())
	return e.store.removeComponent(e.id, ct)
}

// HasComponent reports whether e has the component T.
func HasComponent[T any](e Entity) bool {
	ct := e.checkStore().registry.mustComponent(reflect.TypeFor[T]())
	return e.node().archetype.heapOf(ct.structIndex) != nil
}

// GetComponent returns a pointer to the component T of e. It panics if e is null
// or has no T. The pointer is valid until the next structural change of e's
// archetype.
func GetComponent[T any](e Entity) *T {
	c, ok := TryGetComponent[T](e)
	if !ok {
		panic(fmt.Errorf("%w: %s on entity %d", ErrMissingComponent, reflect.TypeFor[T](), e.id))
	}
	return c
}

// TryGetComponent returns a pointer to the component T of e and whether it exists.
func TryGetComponent[T any](e Entity) (*T, bool) {
	ct := e.checkStore().registry.mustComponent(reflect.TypeFor[T]())
	node := e.node()
	heap := node.archetype.heapOf(ct.structIndex)
	if heap == nil {
		return nil, false
	}
	return heap.(*StructHeap[T]).Get(int(node.compIndex)), true
}

// AddTag adds the tag T. It returns false if e already has it.
func AddTag[T any](e Entity) bool {
	tt := TagTypeOf[T](e.checkStore().registry)
	return e.store.addTags(e.id, TagsOf(tt))
}

// RemoveTag removes the tag T. It returns false if e does not have it.
func RemoveTag[T any](e Entity) bool {
	tt := TagTypeOf[T](e.checkStore().registry)
	return e.store.removeTags(e.id, TagsOf(tt))
}

// HasTag reports whether e has the tag T.
func HasTag[T any](e Entity) bool {
	tt := TagTypeOf[T](e.checkStore().registry)
	return e.node().archetype.tags.Has(tt)
}

// AddTags adds all tags in tags. It returns true if the tag set changed.
func (e Entity) AddTags(tags Tags) bool {
	return e.checkStore().addTags(e.id, tags)
}

// RemoveTags removes all tags in tags. It returns true if the tag set changed.
func (e Entity) RemoveTags(tags Tags) bool {
	return e.checkStore().removeTags(e.id, tags)
}
