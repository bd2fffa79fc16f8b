package ecs

// Singleton provides access to a single instance of component T held by a
// dedicated entity. The singleton entity is the first entity of the archetype
// whose shape is exactly T with no tags. Use this for global state such as
// frame counters or configuration.
type Singleton[T any] struct {
	store     *EntityStore
	archetype *Archetype
}

// NewSingleton creates a Singleton accessor for the given store.
// If no singleton entity exists it is created with the initializer value, or
// the zero value when none is given.
func NewSingleton[T any](store *EntityStore, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{}
	s.Init(store)
	if s.archetype.EntityCount() == 0 {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		e := store.CreateEntityInArchetype(s.archetype)
		HeapOf[T](s.archetype).Set(int(e.CompIndex()), value)
	}
	return s
}

// Init binds the Singleton to store without creating the entity.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(store *EntityStore) {
	s.store = store
	s.archetype = store.GetArchetype(Signature1[T](store.registry), Tags{})
}

// Get returns a pointer to the singleton component, or nil if it does not exist.
// The pointer is valid until the next structural change of the singleton archetype.
func (s *Singleton[T]) Get() *T {
	if s.archetype == nil || s.archetype.EntityCount() == 0 {
		return nil
	}
	return HeapOf[T](s.archetype).Get(0)
}

// Entity returns the singleton entity, or a null Entity.
func (s *Singleton[T]) Entity() Entity {
	if s.archetype == nil || s.archetype.EntityCount() == 0 {
		return Entity{}
	}
	return Entity{store: s.store, id: s.archetype.entityIds[0]}
}

// Exists reports whether the singleton entity exists.
func (s *Singleton[T]) Exists() bool {
	return s.archetype != nil && s.archetype.EntityCount() > 0
}
