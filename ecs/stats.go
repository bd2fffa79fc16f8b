package ecs

// StoreStats is a snapshot of the size of an EntityStore.
type StoreStats struct {
	EntityCount        int
	ArchetypeCount     int
	NodeCapacity       int
	ScriptEntityCount  int
	EntityRefCount     int
	HashCollisions     int
	ArchetypeBreakdown []ArchetypeStats
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	ArchIndex   int
	Components  []string
	TagCount    int
	EntityCount int
}

// CollectStats returns the current statistics of the store.
func (s *EntityStore) CollectStats() *StoreStats {
	stats := &StoreStats{
		EntityCount:        s.entityCount,
		ArchetypeCount:     len(s.archetypes),
		NodeCapacity:       len(s.nodes),
		ScriptEntityCount:  s.scripts.Len(),
		EntityRefCount:     s.refs.Len(),
		ArchetypeBreakdown: make([]ArchetypeStats, len(s.archetypes)),
	}
	s.archetypeMap.ForEach(func(_ uint64, chain []*Archetype) bool {
		stats.HashCollisions += len(chain) - 1
		return true
	})
	for i, a := range s.archetypes {
		keys := make([]string, len(a.types))
		for j, ct := range a.types {
			keys[j] = ct.key
		}
		stats.ArchetypeBreakdown[i] = ArchetypeStats{
			ArchIndex:   a.archIndex,
			Components:  keys,
			TagCount:    a.tags.Count(),
			EntityCount: len(a.entityIds),
		}
	}
	return stats
}
