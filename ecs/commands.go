package ecs

// Commands provides a buffer for deferred structural changes that are executed at
// the end of a frame. This prevents structural changes to the store while systems
// iterate its archetypes.
type Commands struct {
	creates []createCommand
	deletes []Entity
	adds    []addComponentCommand
	removes []removeComponentCommand
	tags    []tagCommand
	links   []childCommand
	defers  []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

// NewCommands returns an empty command buffer.
func NewCommands() *Commands {
	return newCommands()
}

type deferCommand struct {
	fn func()
}

type createCommand struct {
	components []any
	tags       Tags
	parent     Entity
	created    func(Entity)
}

type addComponentCommand struct {
	entity    Entity
	component any
}

type removeComponentCommand struct {
	entity   Entity
	compType *ComponentType
}

type tagCommand struct {
	entity Entity
	tags   Tags
	remove bool
}

type childCommand struct {
	parent Entity
	child  Entity
	remove bool
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// CreateEntity queues the creation of an entity with the given component values.
// created, if not nil, is called with the new entity during Flush.
func (c *Commands) CreateEntity(created func(Entity), components ...any) {
	c.creates = append(c.creates, createCommand{components: components, created: created})
}

// CreateTaggedEntity queues the creation of an entity carrying tags.
func (c *Commands) CreateTaggedEntity(tags Tags, created func(Entity), components ...any) {
	c.creates = append(c.creates, createCommand{components: components, tags: tags, created: created})
}

// CreateChild queues the creation of an entity appended to the children of parent.
func (c *Commands) CreateChild(parent Entity, created func(Entity), components ...any) {
	c.creates = append(c.creates, createCommand{components: components, parent: parent, created: created})
}

// DeleteEntity queues an entity deletion operation.
func (c *Commands) DeleteEntity(e Entity) {
	c.deletes = append(c.deletes, e)
}

// AddComponent queues a component addition given as T or *T.
func (c *Commands) AddComponent(e Entity, component any) {
	c.adds = append(c.adds, addComponentCommand{entity: e, component: component})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(e Entity, compType *ComponentType) {
	c.removes = append(c.removes, removeComponentCommand{entity: e, compType: compType})
}

// AddTags queues adding tags to e.
func (c *Commands) AddTags(e Entity, tags Tags) {
	c.tags = append(c.tags, tagCommand{entity: e, tags: tags})
}

// RemoveTags queues removing tags from e.
func (c *Commands) RemoveTags(e Entity, tags Tags) {
	c.tags = append(c.tags, tagCommand{entity: e, tags: tags, remove: true})
}

// AddChild queues appending child to the children of parent.
func (c *Commands) AddChild(parent, child Entity) {
	c.links = append(c.links, childCommand{parent: parent, child: child})
}

// RemoveChild queues detaching child from parent.
func (c *Commands) RemoveChild(parent, child Entity) {
	c.links = append(c.links, childCommand{parent: parent, child: child, remove: true})
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	return len(c.creates) + len(c.deletes) + len(c.adds) + len(c.removes) +
		len(c.tags) + len(c.links) + len(c.defers)
}

// Flush applies all commands to the provided store and resets the buffer.
// Deletes run first; later commands targeting an entity that is no longer alive
// are skipped. Flush panics with ErrStoreMismatch if a queued entity belongs to
// another store; the check runs before any command is applied.
func (c *Commands) Flush(store *EntityStore) {
	c.checkOwners(store)

	for _, e := range c.deletes {
		if store.queuedAlive(e) {
			store.DeleteEntity(e.id)
		}
	}

	for _, cmd := range c.removes {
		if store.queuedAlive(cmd.entity) {
			store.removeComponent(cmd.entity.id, cmd.compType)
		}
	}

	for _, cmd := range c.adds {
		if store.queuedAlive(cmd.entity) {
			store.AddComponentValue(cmd.entity.id, cmd.component)
		}
	}

	for _, cmd := range c.tags {
		if !store.queuedAlive(cmd.entity) {
			continue
		}
		if cmd.remove {
			store.removeTags(cmd.entity.id, cmd.tags)
		} else {
			store.addTags(cmd.entity.id, cmd.tags)
		}
	}

	for _, cmd := range c.links {
		if !store.queuedAlive(cmd.parent) || !store.queuedAlive(cmd.child) {
			continue
		}
		if cmd.remove {
			store.RemoveChild(cmd.parent.id, cmd.child.id)
		} else {
			store.AddChild(cmd.parent.id, cmd.child.id)
		}
	}

	for _, cmd := range c.creates {
		e := store.Spawn(cmd.components...)
		if !cmd.tags.IsEmpty() {
			store.addTags(e.id, cmd.tags)
		}
		if store.queuedAlive(cmd.parent) {
			store.AddChild(cmd.parent.id, e.id)
		}
		if cmd.created != nil {
			cmd.created(e)
		}
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.creates = c.creates[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.tags = c.tags[:0]
	c.links = c.links[:0]
	c.defers = c.defers[:0]
}

func (c *Commands) checkOwners(store *EntityStore) {
	check := func(e Entity) {
		if e.store != nil {
			store.checkOwner(e)
		}
	}
	for _, e := range c.deletes {
		check(e)
	}
	for _, cmd := range c.removes {
		check(cmd.entity)
	}
	for _, cmd := range c.adds {
		check(cmd.entity)
	}
	for _, cmd := range c.tags {
		check(cmd.entity)
	}
	for _, cmd := range c.links {
		check(cmd.parent)
		check(cmd.child)
	}
	for _, cmd := range c.creates {
		check(cmd.parent)
	}
}

// queuedAlive reports whether a queued handle still refers to a live entity.
func (s *EntityStore) queuedAlive(e Entity) bool {
	return e.store == s && s.isAlive(e.id)
}
