package ecs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNullEntity is raised when a deleted or never created entity is accessed.
	ErrNullEntity = errors.New("ecs: entity is null")
	// ErrStoreMismatch is raised when an entity owned by another store is passed in.
	ErrStoreMismatch = errors.New("ecs: entity is owned by a different store")
	// ErrNotRegistered is raised when a component, tag or script type was never registered.
	ErrNotRegistered = errors.New("ecs: type not registered")
	// ErrMissingComponent is raised when reading a component the entity does not have.
	ErrMissingComponent = errors.New("ecs: entity has no such component")
	// ErrTooManyStructTypes is raised when the registry exceeds the store's MaxStructIndex.
	ErrTooManyStructTypes = errors.New("ecs: too many struct component types")
	// ErrInvariant signals a structural consistency violation inside the store.
	ErrInvariant = errors.New("ecs: structural invariant violated")
	// ErrIdInUse is returned when creating an entity with an id that is already alive.
	ErrIdInUse = errors.New("ecs: id already in use")
	// ErrInvalidId is returned for ids or pids outside the valid range.
	ErrInvalidId = errors.New("ecs: invalid id")
	// ErrInvalidTree is raised for tree operations that cannot be applied, e.g. adding the store root as a child.
	ErrInvalidTree = errors.New("ecs: invalid tree operation")
	// ErrUnknownKey is returned when a data node refers to an unregistered component or tag key.
	ErrUnknownKey = errors.New("ecs: unknown component key")
	// ErrUnserializable is returned when a data node would lose fields of a component value.
	ErrUnserializable = errors.New("ecs: component cannot be serialized without loss")
)

// CycleError reports a parent/child assignment that would make an entity its own ancestor.
// Chain lists the offending ids (or pids when raised by the data node importer),
// starting and ending with the same element.
type CycleError struct {
	Chain []int64
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "ecs: dependency cycle in children: " + strings.Join(parts, " -> ")
}

func nullEntity(id int32) error {
	return fmt.Errorf("%w: id %d", ErrNullEntity, id)
}

func invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
