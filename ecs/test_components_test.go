package ecs_test

import "github.com/plus3/archstore/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Rotation struct {
	Angle float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type PlayerController struct{}

type AI struct {
	State int
}

type Inventory struct {
	Items []string
}

// Custom primitive types for testing non-struct components
type Score int32
type Temperature float64

// Tags
type Enemy struct{}
type Selected struct{}
type Frozen struct{}

// Scripts
type Patrol struct {
	Waypoints []Position
	Next      int
}

type Dialogue struct {
	Lines []string
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Rotation](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Temperature](registry)
	ecs.RegisterTag[Enemy](registry)
	ecs.RegisterTag[Selected](registry)
	ecs.RegisterTag[Frozen](registry)
	ecs.RegisterScript[Patrol](registry)
	ecs.RegisterScript[Dialogue](registry)
	return registry
}

func newTestStore() *ecs.EntityStore {
	return ecs.NewEntityStore(newTestRegistry(), nil)
}
