package ecs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PidType selects how permanent ids are assigned to entities.
type PidType uint8

const (
	// UsePidAsId makes pid == id.
	UsePidAsId PidType = iota
	// RandomPids assigns random, unique pids and keeps a pid to id map.
	RandomPids
)

func (p PidType) String() string {
	switch p {
	case UsePidAsId:
		return "use_pid_as_id"
	case RandomPids:
		return "random_pids"
	}
	return fmt.Sprintf("PidType(%d)", uint8(p))
}

// MarshalYAML implements yaml.Marshaler.
func (p PidType) MarshalYAML() (any, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PidType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "use_pid_as_id", "":
		*p = UsePidAsId
	case "random_pids":
		*p = RandomPids
	default:
		return fmt.Errorf("line %d: unknown pid_type %q", node.Line, s)
	}
	return nil
}

// StoreConfig holds the construction-time settings of an EntityStore.
type StoreConfig struct {
	// MaxStructIndex is the largest struct component index the store accepts.
	MaxStructIndex int `yaml:"max_struct_index"`
	// PidType selects the pid assignment policy.
	PidType PidType `yaml:"pid_type"`
	// PidSeed seeds the random pid generator. Zero picks a random seed.
	PidSeed uint64 `yaml:"pid_seed"`
	// NodeCapacity is the initial size of the node table.
	NodeCapacity int `yaml:"node_capacity"`
}

// DefaultStoreConfig returns the settings used when NewEntityStore gets a nil config.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		MaxStructIndex: 256,
		PidType:        UsePidAsId,
		NodeCapacity:   64,
	}
}

// ParseStoreConfig reads a YAML document into a config initialised with the defaults.
func ParseStoreConfig(data []byte) (*StoreConfig, error) {
	cfg := DefaultStoreConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse store config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStoreConfig reads a YAML config file.
func LoadStoreConfig(path string) (*StoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load store config: %w", err)
	}
	return ParseStoreConfig(data)
}

// Validate checks the config for out of range values.
func (c *StoreConfig) Validate() error {
	if c.MaxStructIndex < 1 || c.MaxStructIndex > 1<<16-1 {
		return fmt.Errorf("store config: max_struct_index %d out of range [1, 65535]", c.MaxStructIndex)
	}
	if c.PidType != UsePidAsId && c.PidType != RandomPids {
		return fmt.Errorf("store config: invalid pid_type %d", c.PidType)
	}
	if c.NodeCapacity < 0 {
		return fmt.Errorf("store config: negative node_capacity %d", c.NodeCapacity)
	}
	return nil
}
