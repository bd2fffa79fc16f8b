package ecs

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// DataNode is the external record of one entity: its pid, the pids of its
// children in order, its component values keyed by component key and its tag keys.
// Component values are kept as yaml.Node so the record can be decoded without
// knowing the registered types.
type DataNode struct {
	Pid        int64                `yaml:"pid"`
	Children   []int64              `yaml:"children,omitempty"`
	Components map[string]yaml.Node `yaml:"components,omitempty"`
	Tags       []string             `yaml:"tags,omitempty"`
}

var (
	yamlMarshalerType   = reflect.TypeFor[yaml.Marshaler]()
	yamlUnmarshalerType = reflect.TypeFor[yaml.Unmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	timeType            = reflect.TypeFor[time.Time]()
)

// marshalsItself reports whether values of t encode and decode through their own
// methods instead of field by field.
func marshalsItself(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	switch {
	case t == timeType:
		return true
	case (t.Implements(yamlMarshalerType) || pt.Implements(yamlMarshalerType)) && pt.Implements(yamlUnmarshalerType):
		return true
	case (t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)) && pt.Implements(textUnmarshalerType):
		return true
	}
	return false
}

// droppedYAMLField returns the path of the first field of t that the YAML codec
// skips, or "" if values of t round-trip.
func droppedYAMLField(t reflect.Type, seen map[reflect.Type]bool) string {
	if seen[t] || marshalsItself(t) {
		return ""
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return droppedYAMLField(t.Elem(), seen)
	case reflect.Map:
		if f := droppedYAMLField(t.Key(), seen); f != "" {
			return f
		}
		return droppedYAMLField(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Tag.Get("yaml") == "-" {
				continue
			}
			if !field.IsExported() {
				return field.Name
			}
			if f := droppedYAMLField(field.Type, seen); f != "" {
				return field.Name + "." + f
			}
		}
	}
	return ""
}

func checkSerializable(ct *ComponentType, pid int64) error {
	if ct.droppedField == "" {
		return nil
	}
	return fmt.Errorf("%w: %s of pid %d has field %s", ErrUnserializable, ct.key, pid, ct.droppedField)
}

// decodedNode is a DataNode with all keys resolved and all values decoded.
type decodedNode struct {
	pid        int64
	children   []int64
	types      []*ComponentType
	values     []reflect.Value
	scripts    []any
	tags       Tags
	entityId   int32
	childIds   []int32
	hasRecord  bool
	hasEntity  bool
	proposedBy int64
}

// CreateFromDataNode creates or updates the entity with node.Pid. See
// CreateFromDataNodes.
func (s *EntityStore) CreateFromDataNode(node DataNode) (Entity, error) {
	entities, err := s.CreateFromDataNodes([]DataNode{node})
	if err != nil {
		return Entity{}, err
	}
	return entities[0], nil
}

// CreateFromDataNodes creates or updates one entity per node. Entities are looked
// up by pid; missing entities, including children that have no record of their
// own, are created. The components and tags of each entity are replaced by those
// of its record and its child list is replaced by the record's children.
//
// All records are validated before the store is changed: unknown keys, undecodable
// values, invalid pids and child assignments that would form a cycle return an
// error and leave the store untouched. A cycle is reported as a *CycleError whose
// chain holds pids.
func (s *EntityStore) CreateFromDataNodes(nodes []DataNode) ([]Entity, error) {
	decoded, byPid, err := s.decodeDataNodes(nodes)
	if err != nil {
		return nil, err
	}
	if err := s.validateDataNodeTree(decoded, byPid); err != nil {
		s.logger.Warn().Err(err).Int("nodes", len(nodes)).Msg("rejected data nodes")
		return nil, err
	}

	created := 0
	entities := make([]Entity, len(nodes))
	for i, dn := range decoded {
		e, isNew, err := s.entityForPid(dn.pid)
		if err != nil {
			return nil, invariant("pid %d passed validation: %v", dn.pid, err)
		}
		if isNew {
			created++
		}
		dn.entityId = e.id
		s.replaceComponents(dn)
		entities[i] = e
	}
	for _, dn := range decoded {
		dn.childIds = make([]int32, len(dn.children))
		for i, childPid := range dn.children {
			e, isNew, err := s.entityForPid(childPid)
			if err != nil {
				return nil, invariant("child pid %d passed validation: %v", childPid, err)
			}
			if isNew {
				created++
			}
			dn.childIds[i] = e.id
		}
	}

	// Detach every edge that is not part of the result first. The remaining
	// graph is then a subgraph of the validated one and stays acyclic while the
	// new child lists are applied.
	for _, dn := range decoded {
		parent := &s.nodes[dn.entityId]
		for _, old := range slices.Clone(parent.childIds) {
			if !slices.Contains(dn.childIds, old) {
				s.RemoveChild(dn.entityId, old)
			}
		}
		for _, childId := range dn.childIds {
			if p := s.nodes[childId].parentId; p > 0 && p != dn.entityId {
				s.RemoveChild(p, childId)
			}
		}
	}
	for _, dn := range decoded {
		if err := s.SetChildNodes(dn.entityId, dn.childIds); err != nil {
			return nil, invariant("child assignment of pid %d passed validation: %v", dn.pid, err)
		}
	}

	s.logger.Debug().
		Int("nodes", len(nodes)).
		Int("created", created).
		Int("archetypes", len(s.archetypes)).
		Msg("imported data nodes")
	return entities, nil
}

// decodeDataNodes resolves keys and decodes every component value.
func (s *EntityStore) decodeDataNodes(nodes []DataNode) ([]*decodedNode, map[int64]*decodedNode, error) {
	decoded := make([]*decodedNode, len(nodes))
	byPid := make(map[int64]*decodedNode, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		if err := s.checkPid(node.Pid); err != nil {
			return nil, nil, err
		}
		if _, dup := byPid[node.Pid]; dup {
			return nil, nil, fmt.Errorf("%w: pid %d listed twice", ErrInvalidTree, node.Pid)
		}
		dn := &decodedNode{pid: node.Pid, children: node.Children, hasRecord: true}

		keys := make([]string, 0, len(node.Components))
		for key := range node.Components {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			ct, ok := s.registry.ComponentByKey(key)
			if !ok {
				return nil, nil, fmt.Errorf("%w: component %q in pid %d", ErrUnknownKey, key, node.Pid)
			}
			if err := checkSerializable(ct, node.Pid); err != nil {
				return nil, nil, err
			}
			value := reflect.New(ct.typ)
			blob := node.Components[key]
			if err := blob.Decode(value.Interface()); err != nil {
				return nil, nil, fmt.Errorf("decode %s of pid %d: %w", key, node.Pid, err)
			}
			if ct.kind == scriptKind {
				dn.scripts = append(dn.scripts, value.Interface())
				continue
			}
			dn.types = append(dn.types, ct)
			dn.values = append(dn.values, value)
		}
		for _, key := range node.Tags {
			tt, ok := s.registry.TagByKey(key)
			if !ok {
				return nil, nil, fmt.Errorf("%w: tag %q in pid %d", ErrUnknownKey, key, node.Pid)
			}
			dn.tags.Add(tt)
		}
		decoded[i] = dn
		byPid[node.Pid] = dn
	}

	for _, dn := range decoded {
		for _, childPid := range dn.children {
			if err := s.checkPid(childPid); err != nil {
				return nil, nil, err
			}
			if child, ok := byPid[childPid]; ok && child.proposedBy != 0 {
				return nil, nil, fmt.Errorf("%w: pid %d is a child of %d and %d",
					ErrInvalidTree, childPid, child.proposedBy, dn.pid)
			}
			if child, ok := byPid[childPid]; ok {
				child.proposedBy = dn.pid
				continue
			}
			byPid[childPid] = &decodedNode{pid: childPid, proposedBy: dn.pid}
		}
	}
	return decoded, byPid, nil
}

// validateDataNodeTree checks the hierarchy that results from applying the
// records: every entity keeps its current parent unless a record claims it or
// its parent's record drops it.
func (s *EntityStore) validateDataNodeTree(decoded []*decodedNode, byPid map[int64]*decodedNode) error {
	for _, dn := range byPid {
		if id, ok := s.PidToId(dn.pid); ok {
			dn.entityId = id
			dn.hasEntity = true
		}
	}
	parentOf := func(pid int64) int64 {
		dn, ok := byPid[pid]
		if ok && dn.proposedBy != 0 {
			return dn.proposedBy
		}
		var id int32
		if ok {
			if !dn.hasEntity {
				return 0
			}
			id = dn.entityId
		} else {
			id, ok = s.PidToId(pid)
			if !ok {
				return 0
			}
		}
		parentId := s.nodes[id].parentId
		if parentId <= 0 {
			return 0
		}
		parentPid := s.nodes[parentId].pid
		if parent, ok := byPid[parentPid]; ok && parent.hasRecord {
			// the parent's record lists all of its children
			return 0
		}
		return parentPid
	}

	limit := s.entityCount + len(byPid) + 1
	for _, dn := range decoded {
		seen := make(map[int64]struct{}, len(dn.children))
		for _, childPid := range dn.children {
			if _, dup := seen[childPid]; dup {
				return fmt.Errorf("%w: child pid %d listed twice by %d", ErrInvalidTree, childPid, dn.pid)
			}
			seen[childPid] = struct{}{}
			if child, ok := byPid[childPid]; ok && child.hasEntity &&
				s.nodes[child.entityId].parentId == StoreRootParentId {
				return fmt.Errorf("%w: store root pid %d cannot be a child", ErrInvalidTree, childPid)
			}
			steps := 0
			for a := dn.pid; a != 0; a = parentOf(a) {
				if a == childPid {
					chain := []int64{childPid}
					for b := dn.pid; ; b = parentOf(b) {
						chain = append(chain, b)
						if b == childPid {
							return &CycleError{Chain: chain}
						}
					}
				}
				if steps++; steps > limit {
					return invariant("ancestor walk from pid %d does not terminate", dn.pid)
				}
			}
		}
	}
	return nil
}

// checkPid reports whether pid can be created under the store's pid policy.
func (s *EntityStore) checkPid(pid int64) error {
	if pid <= 0 {
		return fmt.Errorf("%w: pid %d", ErrInvalidId, pid)
	}
	if s.config.PidType == UsePidAsId && pid > int64(^uint32(0)>>1) {
		return fmt.Errorf("%w: pid %d exceeds id range", ErrInvalidId, pid)
	}
	return nil
}

// entityForPid returns the entity with pid, creating it if needed.
func (s *EntityStore) entityForPid(pid int64) (Entity, bool, error) {
	if e, ok := s.GetEntityByPid(pid); ok {
		return e, false, nil
	}
	e, err := s.CreateEntityWithPid(pid)
	return e, err == nil, err
}

// replaceComponents moves the entity of dn into the archetype of its record and
// writes the decoded values.
func (s *EntityStore) replaceComponents(dn *decodedNode) {
	node := &s.nodes[dn.entityId]
	target := s.GetArchetype(s.registry.SignatureOf(dn.types...), dn.tags)
	if node.archetype != target {
		node.archetype.MoveEntityTo(dn.entityId, node.compIndex, target, s.updater())
	}
	for i, ct := range dn.types {
		target.heapOf(ct.structIndex).setAny(int(node.compIndex), dn.values[i].Interface())
	}
	if len(dn.scripts) > 0 {
		s.scripts.Put(dn.entityId, dn.scripts)
	} else {
		s.scripts.Del(dn.entityId)
	}
}

// ToDataNode exports the entity e.
func (s *EntityStore) ToDataNode(e Entity) (DataNode, error) {
	s.checkOwner(e)
	node := s.liveNode(e.id)
	dn := DataNode{Pid: node.pid}
	for _, childId := range node.childIds {
		dn.Children = append(dn.Children, s.nodes[childId].pid)
	}

	arch := node.archetype
	scripts, _ := s.scripts.Get(e.id)
	if len(arch.heaps)+len(scripts) > 0 {
		dn.Components = make(map[string]yaml.Node, len(arch.heaps)+len(scripts))
	}
	for _, h := range arch.heaps {
		if err := checkSerializable(h.componentType(), node.pid); err != nil {
			return DataNode{}, err
		}
		blob, err := h.encode(int(node.compIndex))
		if err != nil {
			return DataNode{}, fmt.Errorf("encode %s of pid %d: %w", h.componentType().key, node.pid, err)
		}
		dn.Components[h.componentType().key] = blob
	}
	for _, script := range scripts {
		ct := s.registry.mustScript(reflect.TypeOf(script).Elem())
		if err := checkSerializable(ct, node.pid); err != nil {
			return DataNode{}, err
		}
		var blob yaml.Node
		if err := blob.Encode(script); err != nil {
			return DataNode{}, fmt.Errorf("encode %s of pid %d: %w", ct.key, node.pid, err)
		}
		dn.Components[ct.key] = blob
	}

	tagTypes := s.registry.TagTypes()
	for _, idx := range arch.tags.Indexes() {
		dn.Tags = append(dn.Tags, tagTypes[idx].key)
	}
	return dn, nil
}

// ToDataNodes exports every entity in id order.
func (s *EntityStore) ToDataNodes() ([]DataNode, error) {
	nodes := make([]DataNode, 0, s.entityCount)
	for e := range s.Entities() {
		dn, err := s.ToDataNode(e)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, dn)
	}
	return nodes, nil
}

// ReadDataNodes reads a YAML sequence of data nodes. An empty input yields no nodes.
func ReadDataNodes(r io.Reader) ([]DataNode, error) {
	var nodes []DataNode
	if err := yaml.NewDecoder(r).Decode(&nodes); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data nodes: %w", err)
	}
	return nodes, nil
}

// WriteDataNodes writes nodes as a YAML sequence.
func WriteDataNodes(w io.Writer, nodes []DataNode) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(nodes); err != nil {
		return fmt.Errorf("write data nodes: %w", err)
	}
	return enc.Close()
}
