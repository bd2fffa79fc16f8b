package ecs

import (
	"fmt"
	"reflect"
)

// registerArchetype appends a to the archetype table and the hash index.
func (s *EntityStore) registerArchetype(a *Archetype) *Archetype {
	for _, ct := range a.types {
		if ct.structIndex > s.config.MaxStructIndex {
			panic(fmt.Errorf("%w: %s has structIndex %d, max_struct_index %d",
				ErrTooManyStructTypes, ct.key, ct.structIndex, s.config.MaxStructIndex))
		}
	}
	a.archIndex = len(s.archetypes)
	s.archetypes = append(s.archetypes, a)
	chain, _ := s.archetypeMap.Get(a.hash)
	s.archetypeMap.Put(a.hash, append(chain, a))

	if e := s.logger.Debug(); e.Enabled() {
		keys := make([]string, len(a.types))
		for i, ct := range a.types {
			keys[i] = ct.key
		}
		e.Int("arch_index", a.archIndex).
			Uint64("hash", a.hash).
			Strs("components", keys).
			Int("tags", a.tags.Count()).
			Bool("hash_collision", len(chain) > 0).
			Msg("archetype created")
	}
	return a
}

// getArchetypeWith returns the archetype with the shape of base plus ct, creating
// it on first use.
func (s *EntityStore) getArchetypeWith(base *Archetype, ct *ComponentType) *Archetype {
	hash := base.hash ^ ct.typeHash
	chain, _ := s.archetypeMap.Get(hash)
	for _, a := range chain {
		if a.hasShape(base, ct, nil, base.tags) {
			return a
		}
	}
	return s.registerArchetype(newArchetype(s, base.shapeWith(ct, nil), base.tags))
}

// getArchetypeWithout returns the archetype with the shape of base minus ct.
func (s *EntityStore) getArchetypeWithout(base *Archetype, ct *ComponentType) *Archetype {
	hash := base.hash ^ ct.typeHash
	chain, _ := s.archetypeMap.Get(hash)
	for _, a := range chain {
		if a.hasShape(base, nil, ct, base.tags) {
			return a
		}
	}
	return s.registerArchetype(newArchetype(s, base.shapeWith(nil, ct), base.tags))
}

// getArchetypeWithTags returns the archetype with the components of base and tags.
func (s *EntityStore) getArchetypeWithTags(base *Archetype, tags Tags) *Archetype {
	hash := base.typeHash ^ tags.hash(s.registry)
	chain, _ := s.archetypeMap.Get(hash)
	for _, a := range chain {
		if a.hasShape(base, nil, nil, tags) {
			return a
		}
	}
	return s.registerArchetype(newArchetype(s, base.shapeWith(nil, nil), tags))
}

// GetArchetype returns the archetype holding exactly the components of sig and
// tags, creating it on first use.
func (s *EntityStore) GetArchetype(sig *Signature, tags Tags) *Archetype {
	if a := s.FindArchetype(sig, tags); a != nil {
		return a
	}
	return s.registerArchetype(newArchetype(s, sig.sorted, tags))
}

// FindArchetype returns the archetype holding exactly the components of sig and
// tags, or nil if none was created yet.
func (s *EntityStore) FindArchetype(sig *Signature, tags Tags) *Archetype {
	if sig.registry != s.registry {
		panic(fmt.Errorf("%w: signature %s", ErrStoreMismatch, sig))
	}
	hash := sig.archetypeHash ^ tags.hash(s.registry)
	chain, _ := s.archetypeMap.Get(hash)
	for _, a := range chain {
		if a.hasTypes(sig.sorted, tags) {
			return a
		}
	}
	return nil
}

// ArchetypesWith returns the archetypes storing every component of sig, carrying
// all tags of with and none of without.
func (s *EntityStore) ArchetypesWith(sig *Signature, with, without Tags) []*Archetype {
	var out []*Archetype
	for _, a := range s.archetypes {
		if a.hasAll(sig.sorted) && a.tags.HasAll(with) && !a.tags.HasAny(without) {
			out = append(out, a)
		}
	}
	return out
}

// indirectType returns the type of value, dereferencing one pointer level.
func indirectType(value any) reflect.Type {
	t := reflect.TypeOf(value)
	if t == nil {
		panic("ecs: nil component value")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
