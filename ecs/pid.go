package ecs

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// pidSource yields random pid candidates in [0, n).
type pidSource interface {
	Int64N(n int64) int64
}

func newPidSource(seed uint64) pidSource {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// generateRandomPidForId draws random pids until one is unused and maps it to id.
func (s *EntityStore) generateRandomPidForId(id int32) int64 {
	for {
		pid := s.pidSource.Int64N(math.MaxInt64) + 1
		if _, used := s.pidToId.Get(pid); used {
			continue
		}
		s.pidToId.Put(pid, id)
		return pid
	}
}

// PidToId returns the id of the entity with the given pid.
func (s *EntityStore) PidToId(pid int64) (int32, bool) {
	if s.config.PidType == UsePidAsId {
		if pid <= 0 || pid > math.MaxInt32 || !s.isAlive(int32(pid)) {
			return 0, false
		}
		return int32(pid), true
	}
	return s.pidToId.Get(pid)
}

// GetEntityByPid returns the entity with the given pid.
func (s *EntityStore) GetEntityByPid(pid int64) (Entity, bool) {
	id, ok := s.PidToId(pid)
	if !ok {
		return Entity{}, false
	}
	return Entity{store: s, id: id}, true
}

// CreateEntityWithPid creates an entity carrying the given pid. With UsePidAsId
// the pid becomes the id. It fails if the pid is already in use.
func (s *EntityStore) CreateEntityWithPid(pid int64) (Entity, error) {
	if pid <= 0 {
		return Entity{}, fmt.Errorf("%w: pid %d", ErrInvalidId, pid)
	}
	if s.config.PidType == UsePidAsId {
		if pid > math.MaxInt32 {
			return Entity{}, fmt.Errorf("%w: pid %d exceeds id range", ErrInvalidId, pid)
		}
		return s.CreateEntityWithId(int32(pid))
	}
	if _, used := s.pidToId.Get(pid); used {
		return Entity{}, fmt.Errorf("%w: pid %d", ErrIdInUse, pid)
	}
	id := s.NewId()
	s.createEntityNode(id, s.defaultArchetype, pid)
	return Entity{store: s, id: id}, nil
}
