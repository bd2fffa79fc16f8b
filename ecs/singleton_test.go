package ecs_test

import (
	"testing"

	"github.com/plus3/archstore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type GameConfig struct {
	MaxPlayers int
	Difficulty string
}

func TestSingleton(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[FrameCounter](registry)
	store := ecs.NewEntityStore(registry, nil)

	var lazy ecs.Singleton[FrameCounter]
	lazy.Init(store)
	assert.False(t, lazy.Exists())
	assert.Nil(t, lazy.Get())
	assert.True(t, lazy.Entity().IsNull())

	s := ecs.NewSingleton(store, FrameCounter{Frames: 3})
	assert.True(t, lazy.Exists())
	assert.Equal(t, 3, lazy.Get().Frames)

	again := ecs.NewSingleton(store, FrameCounter{Frames: 99})
	assert.Equal(t, 3, again.Get().Frames, "existing singleton is kept")
	assert.Equal(t, s.Entity(), again.Entity())
	assert.Equal(t, 1, store.Count())
}

func TestSingletonSharedInstance(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[GameConfig](registry)
	store := ecs.NewEntityStore(registry, nil)

	config := ecs.NewSingleton(store, GameConfig{MaxPlayers: 4, Difficulty: "Normal"})
	require.True(t, config.Exists())

	config.Get().Difficulty = "Hard"
	same := ecs.NewSingleton[GameConfig](store)
	assert.Equal(t, "Hard", same.Get().Difficulty)
	assert.Equal(t, "[GameConfig] entities: 1", config.Entity().Archetype().String())

	config.Entity().DeleteEntity()
	assert.False(t, same.Exists())
	assert.Nil(t, same.Get())
}
