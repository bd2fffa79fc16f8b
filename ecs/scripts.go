package ecs

import "reflect"

// Scripts are behaviour-bearing components held by pointer in a per-entity list.
// They live outside the archetype heaps: adding or removing a script is not a
// structural change and lookups scan the entity's short list by type.

// AddScript attaches script to e, replacing a script of the same type. It returns
// true if the script was added.
func AddScript[T any](e Entity, script *T) bool {
	s := e.checkStore()
	s.registry.mustScript(reflect.TypeFor[T]())
	s.liveNode(e.id)
	list, _ := s.scripts.Get(e.id)
	for i, existing := range list {
		if _, ok := existing.(*T); ok {
			list[i] = script
			return false
		}
	}
	s.scripts.Put(e.id, append(list, script))
	return true
}

// GetScript returns the script of type T, or nil.
func GetScript[T any](e Entity) *T {
	s := e.checkStore()
	s.liveNode(e.id)
	list, _ := s.scripts.Get(e.id)
	for _, existing := range list {
		if script, ok := existing.(*T); ok {
			return script
		}
	}
	return nil
}

// RemoveScript detaches the script of type T. It returns false if e had none.
func RemoveScript[T any](e Entity) bool {
	s := e.checkStore()
	s.liveNode(e.id)
	list, _ := s.scripts.Get(e.id)
	for i, existing := range list {
		if _, ok := existing.(*T); ok {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				s.scripts.Del(e.id)
			} else {
				s.scripts.Put(e.id, list)
			}
			return true
		}
	}
	return false
}

// Scripts returns the scripts of e in the order they were added.
func (e Entity) Scripts() []any {
	s := e.checkStore()
	s.liveNode(e.id)
	list, _ := s.scripts.Get(e.id)
	return list
}
