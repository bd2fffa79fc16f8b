package ecs

import (
	"fmt"
	"slices"
)

// TreeMembership tells whether an entity is reachable from the store root.
type TreeMembership uint8

const (
	// Floating entities are not reachable from the store root.
	Floating TreeMembership = iota
	// TreeNode entities are the store root or one of its descendants.
	TreeNode
)

func (m TreeMembership) String() string {
	if m == TreeNode {
		return "treeNode"
	}
	return "floating"
}

// StoreRoot returns the root entity of the store. It is null if no root is set.
func (s *EntityStore) StoreRoot() Entity {
	return Entity{store: s, id: s.rootId}
}

// SetStoreRoot makes id the root of the entity tree. The entity must not have a
// parent and the store must not have a root yet.
func (s *EntityStore) SetStoreRoot(id int32) {
	node := s.liveNode(id)
	if s.rootId != 0 {
		panic(fmt.Errorf("%w: store root already set to %d", ErrInvalidTree, s.rootId))
	}
	if node.parentId != NoParentId {
		panic(fmt.Errorf("%w: entity %d has parent %d", ErrInvalidTree, id, node.parentId))
	}
	node.parentId = StoreRootParentId
	s.rootId = id
	s.setTreeFlags(id)
}

// GetTreeMembership returns the tree membership of id.
func (s *EntityStore) GetTreeMembership(id int32) TreeMembership {
	if s.liveNode(id).flags&NodeTreeNode != 0 {
		return TreeNode
	}
	return Floating
}

// AddChild appends childId to the children of parentId and returns its index.
// A child attached to another parent is detached first. Adding an existing child
// again is a no-op returning its current index. Making an entity a child of itself
// or of one of its descendants panics with a *CycleError.
func (s *EntityStore) AddChild(parentId, childId int32) int {
	parent := s.liveNode(parentId)
	child := s.liveNode(childId)
	if chain := s.ancestorCycle(parentId, childId); chain != nil {
		panic(&CycleError{Chain: chain})
	}
	if child.parentId == parentId {
		return slices.Index(parent.childIds, childId)
	}
	if child.parentId == StoreRootParentId {
		panic(fmt.Errorf("%w: store root %d cannot be a child", ErrInvalidTree, childId))
	}
	if child.parentId > 0 {
		s.removeChildNode(child.parentId, childId)
	}
	child.parentId = parentId
	parent.childIds = append(parent.childIds, childId)
	s.updateTreeFlags(parent, childId)
	return len(parent.childIds) - 1
}

// InsertChild inserts childId at index into the children of parentId, shifting
// the following children. An existing child of parentId is moved to index.
func (s *EntityStore) InsertChild(parentId, childId int32, index int) {
	parent := s.liveNode(parentId)
	child := s.liveNode(childId)
	if chain := s.ancestorCycle(parentId, childId); chain != nil {
		panic(&CycleError{Chain: chain})
	}
	if child.parentId == StoreRootParentId {
		panic(fmt.Errorf("%w: store root %d cannot be a child", ErrInvalidTree, childId))
	}
	if child.parentId == parentId {
		cur := slices.Index(parent.childIds, childId)
		if index < 0 || index >= len(parent.childIds) {
			panic(fmt.Errorf("%w: child index %d out of range [0, %d)", ErrInvalidTree, index, len(parent.childIds)))
		}
		if cur == index {
			return
		}
		parent.childIds = slices.Delete(parent.childIds, cur, cur+1)
		parent.childIds = slices.Insert(parent.childIds, index, childId)
		return
	}
	if index < 0 || index > len(parent.childIds) {
		panic(fmt.Errorf("%w: child index %d out of range [0, %d]", ErrInvalidTree, index, len(parent.childIds)))
	}
	if child.parentId > 0 {
		s.removeChildNode(child.parentId, childId)
	}
	child.parentId = parentId
	parent.childIds = slices.Insert(parent.childIds, index, childId)
	s.updateTreeFlags(parent, childId)
}

// RemoveChild detaches childId from parentId. It returns false if childId is not
// a child of parentId. The removed child becomes floating.
func (s *EntityStore) RemoveChild(parentId, childId int32) bool {
	s.liveNode(parentId)
	child := s.liveNode(childId)
	if child.parentId != parentId {
		return false
	}
	s.removeChildNode(parentId, childId)
	child.parentId = NoParentId
	s.clearTreeFlags(childId)
	return true
}

// SetChildNodes replaces the children of parentId with childIds in the given order.
// Children not in the list are detached. Before changing anything the proposed
// assignment is checked: a child that is parentId itself or one of its ancestors
// yields a *CycleError and the store is left unchanged.
func (s *EntityStore) SetChildNodes(parentId int32, childIds []int32) error {
	if !s.isAlive(parentId) {
		return nullEntity(parentId)
	}
	seen := make(map[int32]struct{}, len(childIds))
	for _, childId := range childIds {
		if !s.isAlive(childId) {
			return nullEntity(childId)
		}
		if _, dup := seen[childId]; dup {
			return fmt.Errorf("%w: child %d listed twice", ErrInvalidTree, childId)
		}
		seen[childId] = struct{}{}
		if chain := s.ancestorCycle(parentId, childId); chain != nil {
			s.logger.Warn().Ints64("chain", chain).Msg("rejected child assignment")
			return &CycleError{Chain: chain}
		}
		if s.nodes[childId].parentId == StoreRootParentId {
			return fmt.Errorf("%w: store root %d cannot be a child", ErrInvalidTree, childId)
		}
	}

	parent := &s.nodes[parentId]
	for _, old := range parent.childIds {
		if _, keep := seen[old]; !keep {
			s.nodes[old].parentId = NoParentId
			s.clearTreeFlags(old)
		}
	}
	parent.childIds = parent.childIds[:0]
	for _, childId := range childIds {
		child := &s.nodes[childId]
		if child.parentId > 0 && child.parentId != parentId {
			s.removeChildNode(child.parentId, childId)
		}
		child.parentId = parentId
		parent.childIds = append(parent.childIds, childId)
		s.updateTreeFlags(parent, childId)
	}
	return nil
}

// ancestorCycle returns the cycle chain if making childId a child of parentId
// would make childId its own ancestor, nil otherwise.
func (s *EntityStore) ancestorCycle(parentId, childId int32) []int64 {
	for id := parentId; id > 0; id = s.nodes[id].parentId {
		if id != childId {
			continue
		}
		chain := []int64{int64(childId)}
		for a := parentId; ; a = s.nodes[a].parentId {
			chain = append(chain, int64(a))
			if a == childId {
				return chain
			}
		}
	}
	return nil
}

// removeChildNode removes childId from the child list of parentId. A missing child
// is an invariant violation. The child's parentId is left to the caller.
func (s *EntityStore) removeChildNode(parentId, childId int32) int {
	parent := &s.nodes[parentId]
	idx := slices.Index(parent.childIds, childId)
	if idx < 0 {
		panic(invariant("child %d not found in parent %d", childId, parentId))
	}
	parent.childIds = slices.Delete(parent.childIds, idx, idx+1)
	return idx
}

func (s *EntityStore) updateTreeFlags(parent *EntityNode, childId int32) {
	if parent.flags&NodeTreeNode != 0 {
		s.setTreeFlags(childId)
	} else {
		s.clearTreeFlags(childId)
	}
}

// setTreeFlags marks id and all its descendants as tree nodes.
// A node already flagged has a flagged subtree, so the walk stops there.
func (s *EntityStore) setTreeFlags(id int32) {
	stack := append(s.idStack[:0], id)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &s.nodes[cur]
		if node.flags&NodeTreeNode != 0 {
			continue
		}
		node.flags |= NodeTreeNode
		stack = append(stack, node.childIds...)
	}
	s.idStack = stack[:0]
}

// clearTreeFlags marks id and all its descendants as floating.
func (s *EntityStore) clearTreeFlags(id int32) {
	stack := append(s.idStack[:0], id)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &s.nodes[cur]
		if node.flags&NodeTreeNode == 0 {
			continue
		}
		node.flags &^= NodeTreeNode
		stack = append(stack, node.childIds...)
	}
	s.idStack = stack[:0]
}
