package ecs

import (
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/kamstrup/intmap"
)

// MaxTagTypes is the number of distinct tag types a registry can hold.
const MaxTagTypes = 256

type componentKind uint8

const (
	structKind componentKind = iota
	scriptKind
)

// ComponentType describes a registered struct component or script type.
type ComponentType struct {
	typ         reflect.Type
	kind        componentKind
	structIndex int
	scriptIndex int
	typeHash    uint64
	key         string
	newHeap     func(capacity int) structHeap
	// droppedField names a field the YAML codec would lose, if any.
	droppedField string
}

// StructIndex returns the dense index of a struct component, or -1 for scripts.
func (ct *ComponentType) StructIndex() int { return ct.structIndex }

// TypeHash returns the hash used to combine archetype signatures.
func (ct *ComponentType) TypeHash() uint64 { return ct.typeHash }

// Key returns the serialization name of the type.
func (ct *ComponentType) Key() string { return ct.key }

// Type returns the Go type of the component.
func (ct *ComponentType) Type() reflect.Type { return ct.typ }

// Serializable reports whether values of the type survive a data node round trip.
// Types with unexported fields need a yaml or text marshaler pair to qualify.
func (ct *ComponentType) Serializable() bool { return ct.droppedField == "" }

// IsScript reports whether the type is a script (class component) stored outside archetypes.
func (ct *ComponentType) IsScript() bool { return ct.kind == scriptKind }

func (ct *ComponentType) String() string { return ct.key }

// TagType describes a registered tag: a zero-data marker stored as a bit in the archetype.
type TagType struct {
	typ      reflect.Type
	tagIndex int
	typeHash uint64
	key      string
}

// TagIndex returns the bit position of the tag.
func (tt *TagType) TagIndex() int { return tt.tagIndex }

// TypeHash returns the hash folded into archetype hashes.
func (tt *TagType) TypeHash() uint64 { return tt.typeHash }

// Key returns the serialization name of the tag.
func (tt *TagType) Key() string { return tt.key }

func (tt *TagType) String() string { return tt.key }

// ComponentRegistry manages component, tag and script registration.
// A store reads its type table from the registry it was created with, and stores
// sharing a registry agree on every structIndex and typeHash.
type ComponentRegistry struct {
	byType     map[reflect.Type]*ComponentType
	byKey      map[string]*ComponentType
	structs    []*ComponentType
	scripts    []*ComponentType
	tagsByType map[reflect.Type]*TagType
	tagsByKey  map[string]*TagType
	tags       []*TagType
	signatures *intmap.Map[uint64, []*Signature]
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byType: make(map[reflect.Type]*ComponentType),
		byKey:  make(map[string]*ComponentType),
		// structIndex 0 is reserved so a zero heapMap entry means "absent"
		structs:    []*ComponentType{nil},
		tagsByType: make(map[reflect.Type]*TagType),
		tagsByKey:  make(map[string]*TagType),
		signatures: intmap.New[uint64, []*Signature](16),
	}
}

// RegisterComponent registers T as a struct component keyed by its type name.
// Registering the same type again returns the existing ComponentType.
func RegisterComponent[T any](r *ComponentRegistry) *ComponentType {
	return RegisterComponentKey[T](r, "")
}

// RegisterComponentKey registers T as a struct component with an explicit serialization key.
func RegisterComponentKey[T any](r *ComponentRegistry, key string) *ComponentType {
	t := reflect.TypeFor[T]()
	if ct, ok := r.byType[t]; ok {
		if ct.kind != structKind {
			panic(fmt.Sprintf("ecs: %s already registered as script", t))
		}
		return ct
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		panic("ecs: components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}

	ct := &ComponentType{
		typ:          t,
		kind:         structKind,
		structIndex:  len(r.structs),
		scriptIndex:  -1,
		typeHash:     hashType("component:", t),
		key:          r.claimKey(key, t),
		droppedField: droppedYAMLField(t, map[reflect.Type]bool{}),
	}
	ct.newHeap = func(capacity int) structHeap {
		return newStructHeap[T](ct, capacity)
	}
	r.structs = append(r.structs, ct)
	r.byType[t] = ct
	r.byKey[ct.key] = ct
	return ct
}

// RegisterScript registers T as a script. Scripts are held by pointer outside the
// archetype heaps and never take part in archetype hashing.
func RegisterScript[T any](r *ComponentRegistry) *ComponentType {
	t := reflect.TypeFor[T]()
	if ct, ok := r.byType[t]; ok {
		if ct.kind != scriptKind {
			panic(fmt.Sprintf("ecs: %s already registered as struct component", t))
		}
		return ct
	}
	ct := &ComponentType{
		typ:          t,
		kind:         scriptKind,
		structIndex:  -1,
		scriptIndex:  len(r.scripts),
		typeHash:     hashType("script:", t),
		key:          r.claimKey("", t),
		droppedField: droppedYAMLField(t, map[reflect.Type]bool{}),
	}
	r.scripts = append(r.scripts, ct)
	r.byType[t] = ct
	r.byKey[ct.key] = ct
	return ct
}

// RegisterTag registers T as a tag.
func RegisterTag[T any](r *ComponentRegistry) *TagType {
	t := reflect.TypeFor[T]()
	if tt, ok := r.tagsByType[t]; ok {
		return tt
	}
	if len(r.tags) >= MaxTagTypes {
		panic(fmt.Errorf("ecs: more than %d tag types", MaxTagTypes))
	}
	key := typeKey(t)
	if _, dup := r.tagsByKey[key]; dup {
		panic("ecs: duplicate tag key " + key)
	}
	tt := &TagType{
		typ:      t,
		tagIndex: len(r.tags),
		typeHash: hashType("tag:", t),
		key:      key,
	}
	r.tags = append(r.tags, tt)
	r.tagsByType[t] = tt
	r.tagsByKey[key] = tt
	return tt
}

// ComponentTypeOf returns the registered ComponentType of T. It panics if T is not registered.
func ComponentTypeOf[T any](r *ComponentRegistry) *ComponentType {
	return r.mustComponent(reflect.TypeFor[T]())
}

// TagTypeOf returns the registered TagType of T. It panics if T is not registered.
func TagTypeOf[T any](r *ComponentRegistry) *TagType {
	tt, ok := r.tagsByType[reflect.TypeFor[T]()]
	if !ok {
		panic(fmt.Errorf("%w: tag %s", ErrNotRegistered, reflect.TypeFor[T]()))
	}
	return tt
}

// ComponentByKey returns the component or script registered under key.
func (r *ComponentRegistry) ComponentByKey(key string) (*ComponentType, bool) {
	ct, ok := r.byKey[key]
	return ct, ok
}

// TagByKey returns the tag registered under key.
func (r *ComponentRegistry) TagByKey(key string) (*TagType, bool) {
	tt, ok := r.tagsByKey[key]
	return tt, ok
}

// StructCount returns the number of registered struct components.
func (r *ComponentRegistry) StructCount() int {
	return len(r.structs) - 1
}

// StructTypes returns the registered struct components in structIndex order.
func (r *ComponentRegistry) StructTypes() []*ComponentType {
	return r.structs[1:]
}

// TagTypes returns the registered tags in tag index order.
func (r *ComponentRegistry) TagTypes() []*TagType {
	return r.tags
}

func (r *ComponentRegistry) mustComponent(t reflect.Type) *ComponentType {
	ct, ok := r.byType[t]
	if !ok || ct.kind != structKind {
		panic(fmt.Errorf("%w: component %s", ErrNotRegistered, t))
	}
	return ct
}

func (r *ComponentRegistry) mustScript(t reflect.Type) *ComponentType {
	ct, ok := r.byType[t]
	if !ok || ct.kind != scriptKind {
		panic(fmt.Errorf("%w: script %s", ErrNotRegistered, t))
	}
	return ct
}

func (r *ComponentRegistry) claimKey(key string, t reflect.Type) string {
	if key == "" {
		key = typeKey(t)
	}
	if _, dup := r.byKey[key]; dup {
		panic("ecs: duplicate component key " + key)
	}
	return key
}

func typeKey(t reflect.Type) string {
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// hashType derives a process-stable hash from the type's package path and name.
func hashType(kind string, t reflect.Type) uint64 {
	h := fnv.New64a()
	h.Write([]byte(kind))
	h.Write([]byte(t.PkgPath()))
	h.Write([]byte{'.'})
	h.Write([]byte(t.String()))
	return mix64(h.Sum64())
}

// mix64 is the splitmix64 finalizer. It spreads FNV output over all 64 bits so
// XOR combinations of few hashes stay well distributed.
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
