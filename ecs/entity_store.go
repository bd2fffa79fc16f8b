package ecs

import (
	"fmt"
	"iter"
	"sync/atomic"
	"weak"

	"github.com/kamstrup/intmap"
	"github.com/rs/zerolog"
)

const (
	// NoParentId is the parent id of an entity without parent.
	NoParentId int32 = 0
	// StoreRootParentId is the parent id of the store root entity.
	StoreRootParentId int32 = -1
)

// NodeFlags holds per node state bits.
type NodeFlags uint8

const (
	// NodeCreated is set while the node holds a live entity.
	NodeCreated NodeFlags = 1 << iota
	// NodeTreeNode is set when the entity is reachable from the store root.
	NodeTreeNode
)

// EntityNode is the bookkeeping record of one entity id.
type EntityNode struct {
	id        int32
	compIndex int32
	parentId  int32
	flags     NodeFlags
	pid       int64
	archetype *Archetype
	childIds  []int32
}

// Id returns the id of the node.
func (n *EntityNode) Id() int32 { return n.id }

// Pid returns the permanent id of the node.
func (n *EntityNode) Pid() int64 { return n.pid }

// Archetype returns the archetype of the entity, nil if the node is unused.
func (n *EntityNode) Archetype() *Archetype { return n.archetype }

// CompIndex returns the slot of the entity within its archetype heaps.
func (n *EntityNode) CompIndex() int32 { return n.compIndex }

// ParentId returns the parent id, NoParentId or StoreRootParentId.
func (n *EntityNode) ParentId() int32 { return n.parentId }

// ChildIds returns the child ids. The slice must not be modified.
func (n *EntityNode) ChildIds() []int32 { return n.childIds }

// Flags returns the node flags.
func (n *EntityNode) Flags() NodeFlags { return n.flags }

// EntityStore owns the archetypes, the entity node table and the entity tree.
// It is not safe for concurrent use.
type EntityStore struct {
	registry         *ComponentRegistry
	config           StoreConfig
	baseLogger       zerolog.Logger
	logger           zerolog.Logger
	nodes            []EntityNode
	sequenceId       int32
	entityCount      int
	archetypes       []*Archetype
	archetypeMap     *intmap.Map[uint64, []*Archetype]
	defaultArchetype *Archetype
	rootId           int32
	pidToId          *intmap.Map[int64, int32]
	pidSource        pidSource
	refs             *intmap.Map[int32, weak.Pointer[EntityRef]]
	collectedRefs    atomic.Int32
	scripts          *intmap.Map[int32, []any]
	idStack          []int32
	nodeUpdater      nodeUpdater
	refUpdater       refUpdater
}

// NewEntityStore creates a store for the given registry. A nil config selects
// DefaultStoreConfig. An invalid config, or a registry holding more struct types
// than config.MaxStructIndex, panics.
func NewEntityStore(registry *ComponentRegistry, config *StoreConfig) *EntityStore {
	if config == nil {
		config = DefaultStoreConfig()
	}
	if err := config.Validate(); err != nil {
		panic(err)
	}
	if registry.StructCount() > config.MaxStructIndex {
		panic(fmt.Errorf("%w: %d registered, max_struct_index %d",
			ErrTooManyStructTypes, registry.StructCount(), config.MaxStructIndex))
	}

	s := &EntityStore{
		registry:     registry,
		config:       *config,
		baseLogger:   zerolog.Nop(),
		logger:       zerolog.Nop(),
		nodes:        make([]EntityNode, max(config.NodeCapacity, 2)),
		archetypeMap: intmap.New[uint64, []*Archetype](64),
		refs:         intmap.New[int32, weak.Pointer[EntityRef]](16),
		scripts:      intmap.New[int32, []any](16),
	}
	s.nodeUpdater.store = s
	s.refUpdater.store = s
	if config.PidType == RandomPids {
		s.pidToId = intmap.New[int64, int32](max(config.NodeCapacity, 16))
		s.pidSource = newPidSource(config.PidSeed)
	}
	s.defaultArchetype = s.registerArchetype(newArchetype(s, nil, Tags{}))
	return s
}

// InjectLogger sets the logger used for store diagnostics. Schedulers created
// afterwards log through it as well.
func (s *EntityStore) InjectLogger(logger *zerolog.Logger) {
	s.baseLogger = *logger
	s.logger = logger.With().Str("component", "entity_store").Logger()
}

// Registry returns the component registry of the store.
func (s *EntityStore) Registry() *ComponentRegistry { return s.registry }

// Config returns a copy of the store configuration.
func (s *EntityStore) Config() StoreConfig { return s.config }

// Count returns the number of live entities.
func (s *EntityStore) Count() int { return s.entityCount }

// Archetypes returns the archetype table. Index 0 is the default archetype.
func (s *EntityStore) Archetypes() []*Archetype { return s.archetypes }

// DefaultArchetype returns the archetype of entities without components and tags.
func (s *EntityStore) DefaultArchetype() *Archetype { return s.defaultArchetype }

// NodeCapacity returns the current size of the node table.
func (s *EntityStore) NodeCapacity() int { return len(s.nodes) }

// GetEntityById returns a handle for id. The handle is null if id is not alive.
func (s *EntityStore) GetEntityById(id int32) Entity {
	return Entity{store: s, id: id}
}

// GetNode returns a copy of the node record of id.
func (s *EntityStore) GetNode(id int32) (EntityNode, bool) {
	if id <= 0 || int(id) >= len(s.nodes) || s.nodes[id].archetype == nil {
		return EntityNode{}, false
	}
	return s.nodes[id], true
}

// Entities iterates all live entities in id order.
func (s *EntityStore) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := 1; i < len(s.nodes); i++ {
			if s.nodes[i].archetype == nil {
				continue
			}
			if !yield(Entity{store: s, id: int32(i)}) {
				return
			}
		}
	}
}

// NewId returns the next unused id.
func (s *EntityStore) NewId() int32 {
	id := s.sequenceId + 1
	for int(id) < len(s.nodes) && s.nodes[id].archetype != nil {
		id++
	}
	s.sequenceId = id
	return id
}

// CreateEntity creates an entity without components.
func (s *EntityStore) CreateEntity() Entity {
	id := s.NewId()
	s.createEntityNode(id, s.defaultArchetype, 0)
	return Entity{store: s, id: id}
}

// CreateEntityWithId creates an entity with the given id.
func (s *EntityStore) CreateEntityWithId(id int32) (Entity, error) {
	if id <= 0 {
		return Entity{}, fmt.Errorf("%w: %d", ErrInvalidId, id)
	}
	if int(id) < len(s.nodes) && s.nodes[id].archetype != nil {
		return Entity{}, fmt.Errorf("%w: %d", ErrIdInUse, id)
	}
	s.createEntityNode(id, s.defaultArchetype, 0)
	return Entity{store: s, id: id}, nil
}

// CreateEntityWith creates an entity in the archetype of sig with zero-valued components.
func (s *EntityStore) CreateEntityWith(sig *Signature) Entity {
	return s.CreateEntityInArchetype(s.GetArchetype(sig, Tags{}))
}

// Spawn creates an entity directly in the archetype of the given component values,
// each given as T or *T.
func (s *EntityStore) Spawn(components ...any) Entity {
	types := make([]*ComponentType, len(components))
	for i, value := range components {
		types[i] = s.registry.mustComponent(indirectType(value))
	}
	arch := s.GetArchetype(s.registry.SignatureOf(types...), Tags{})
	e := s.CreateEntityInArchetype(arch)
	slot := int(s.nodes[e.id].compIndex)
	for i, ct := range types {
		arch.heapOf(ct.structIndex).setAny(slot, components[i])
	}
	return e
}

// CreateEntityInArchetype creates an entity with zero-valued components in arch.
func (s *EntityStore) CreateEntityInArchetype(arch *Archetype) Entity {
	if arch.store != s {
		panic(fmt.Errorf("%w: archetype %s", ErrStoreMismatch, arch))
	}
	id := s.NewId()
	s.createEntityNode(id, arch, 0)
	return Entity{store: s, id: id}
}

func (s *EntityStore) createEntityNode(id int32, arch *Archetype, pid int64) {
	s.ensureNodes(id)
	node := &s.nodes[id]
	node.id = id
	node.parentId = NoParentId
	node.flags = NodeCreated
	node.archetype = arch
	node.compIndex = arch.AddEntity(id)
	switch {
	case s.config.PidType == UsePidAsId:
		node.pid = int64(id)
	case pid == 0:
		node.pid = s.generateRandomPidForId(id)
	default:
		node.pid = pid
		s.pidToId.Put(pid, id)
	}
	s.entityCount++
}

// ensureNodes grows the node table by doubling until id fits.
func (s *EntityStore) ensureNodes(id int32) {
	if int(id) < len(s.nodes) {
		return
	}
	size := max(len(s.nodes)*2, int(id)+1)
	nodes := make([]EntityNode, size)
	copy(nodes, s.nodes)
	s.nodes = nodes
}

// liveNode returns the node of id and panics if the entity is not alive.
func (s *EntityStore) liveNode(id int32) *EntityNode {
	if id <= 0 || int(id) >= len(s.nodes) || s.nodes[id].archetype == nil {
		panic(nullEntity(id))
	}
	return &s.nodes[id]
}

func (s *EntityStore) isAlive(id int32) bool {
	return id > 0 && int(id) < len(s.nodes) && s.nodes[id].archetype != nil
}

func (s *EntityStore) checkOwner(e Entity) {
	if e.store != s {
		panic(fmt.Errorf("%w: entity %d", ErrStoreMismatch, e.id))
	}
}

// DeleteEntity removes the entity. Its children are not deleted: they lose their
// parent and become floating.
func (s *EntityStore) DeleteEntity(id int32) {
	node := s.liveNode(id)

	for _, childId := range node.childIds {
		child := &s.nodes[childId]
		child.parentId = NoParentId
		s.clearTreeFlags(childId)
	}
	switch parentId := node.parentId; {
	case parentId > 0:
		s.removeChildNode(parentId, id)
	case parentId == StoreRootParentId:
		s.rootId = 0
	}

	node.archetype.moveLastComponentsTo(node.compIndex, s.updater())

	if s.pidToId != nil {
		s.pidToId.Del(node.pid)
	}
	s.scripts.Del(id)
	if wp, ok := s.refs.Get(id); ok {
		if ref := wp.Value(); ref != nil {
			ref.archetype = nil
		}
		s.refs.Del(id)
	}
	s.nodes[id] = EntityNode{}
	s.entityCount--
}

// AddComponentValue adds or updates a component given as T or *T of a registered
// struct component type. It returns true if the component was added.
func (s *EntityStore) AddComponentValue(id int32, value any) bool {
	t := indirectType(value)
	ct := s.registry.mustComponent(t)
	heap, slot, added := s.addComponent(id, ct)
	heap.setAny(int(slot), value)
	return added
}

// RemoveComponentType removes the component of type ct. It returns false if the
// entity does not have it.
func (s *EntityStore) RemoveComponentType(id int32, ct *ComponentType) bool {
	return s.removeComponent(id, ct)
}

// ComponentAny returns a pointer to the component ct of entity id boxed in an any,
// or nil if absent.
func (s *EntityStore) ComponentAny(id int32, ct *ComponentType) any {
	node := s.liveNode(id)
	heap := node.archetype.heapOf(ct.structIndex)
	if heap == nil {
		return nil
	}
	return heap.getAny(int(node.compIndex))
}

// addComponent ensures the entity has ct and returns the heap and slot holding it.
func (s *EntityStore) addComponent(id int32, ct *ComponentType) (structHeap, int32, bool) {
	node := s.liveNode(id)
	arch := node.archetype
	if heap := arch.heapOf(ct.structIndex); heap != nil {
		return heap, node.compIndex, false
	}
	target := s.getArchetypeWith(arch, ct)
	slot := arch.MoveEntityTo(id, node.compIndex, target, s.updater())
	return target.heapOf(ct.structIndex), slot, true
}

func (s *EntityStore) removeComponent(id int32, ct *ComponentType) bool {
	node := s.liveNode(id)
	arch := node.archetype
	if arch.heapOf(ct.structIndex) == nil {
		return false
	}
	target := s.getArchetypeWithout(arch, ct)
	updater := s.updater()
	if target == s.defaultArchetype {
		arch.moveLastComponentsTo(node.compIndex, updater)
		updater.UpdateEntity(id, target, target.AddEntity(id))
		return true
	}
	arch.MoveEntityTo(id, node.compIndex, target, updater)
	return true
}

func (s *EntityStore) addTags(id int32, tags Tags) bool {
	node := s.liveNode(id)
	arch := node.archetype
	newTags := arch.tags.union(tags)
	if newTags == arch.tags {
		return false
	}
	target := s.getArchetypeWithTags(arch, newTags)
	arch.MoveEntityTo(id, node.compIndex, target, s.updater())
	return true
}

func (s *EntityStore) removeTags(id int32, tags Tags) bool {
	node := s.liveNode(id)
	arch := node.archetype
	newTags := arch.tags.difference(tags)
	if newTags == arch.tags {
		return false
	}
	target := s.getArchetypeWithTags(arch, newTags)
	arch.MoveEntityTo(id, node.compIndex, target, s.updater())
	return true
}

// updater returns the EntityUpdater for structural moves. The ref updater is only
// used while EntityRefs exist.
func (s *EntityStore) updater() EntityUpdater {
	if s.collectedRefs.Swap(0) > 0 {
		s.pruneRefs()
	}
	if s.refs.Len() > 0 {
		return &s.refUpdater
	}
	return &s.nodeUpdater
}

type nodeUpdater struct {
	store *EntityStore
}

func (u *nodeUpdater) UpdateEntity(id int32, archetype *Archetype, compIndex int32) {
	node := &u.store.nodes[id]
	node.archetype = archetype
	node.compIndex = compIndex
}

type refUpdater struct {
	store *EntityStore
}

func (u *refUpdater) UpdateEntity(id int32, archetype *Archetype, compIndex int32) {
	node := &u.store.nodes[id]
	node.archetype = archetype
	node.compIndex = compIndex
	if wp, ok := u.store.refs.Get(id); ok {
		if ref := wp.Value(); ref != nil {
			ref.archetype = archetype
			ref.compIndex = compIndex
		} else {
			u.store.refs.Del(id)
		}
	}
}

func (s *EntityStore) String() string {
	return fmt.Sprintf("entities: %d archetypes: %d", s.entityCount, len(s.archetypes))
}
