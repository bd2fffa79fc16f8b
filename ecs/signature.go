package ecs

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// Signature is an interned, ordered list of component types. The same types in a
// different order form a different Signature that resolves to the same Archetype.
// Signature1 to Signature5 cover the common arities; SignatureOf takes any number.
type Signature struct {
	registry      *ComponentRegistry
	types         []*ComponentType
	sorted        []*ComponentType
	hash          uint64
	archetypeHash uint64
}

// Signature1 returns the signature of T1.
func Signature1[T1 any](r *ComponentRegistry) *Signature {
	return r.signature(ComponentTypeOf[T1](r))
}

// Signature2 returns the signature of T1, T2.
func Signature2[T1, T2 any](r *ComponentRegistry) *Signature {
	return r.signature(ComponentTypeOf[T1](r), ComponentTypeOf[T2](r))
}

// Signature3 returns the signature of T1, T2, T3.
func Signature3[T1, T2, T3 any](r *ComponentRegistry) *Signature {
	return r.signature(ComponentTypeOf[T1](r), ComponentTypeOf[T2](r), ComponentTypeOf[T3](r))
}

// Signature4 returns the signature of T1 .. T4.
func Signature4[T1, T2, T3, T4 any](r *ComponentRegistry) *Signature {
	return r.signature(ComponentTypeOf[T1](r), ComponentTypeOf[T2](r), ComponentTypeOf[T3](r),
		ComponentTypeOf[T4](r))
}

// Signature5 returns the signature of T1 .. T5.
func Signature5[T1, T2, T3, T4, T5 any](r *ComponentRegistry) *Signature {
	return r.signature(ComponentTypeOf[T1](r), ComponentTypeOf[T2](r), ComponentTypeOf[T3](r),
		ComponentTypeOf[T4](r), ComponentTypeOf[T5](r))
}

// SignatureOf returns the signature of the given component types.
func (r *ComponentRegistry) SignatureOf(types ...*ComponentType) *Signature {
	return r.signature(types...)
}

func (r *ComponentRegistry) signature(types ...*ComponentType) *Signature {
	var hash uint64
	for i, ct := range types {
		hash ^= bits.RotateLeft64(ct.typeHash, i*13)
	}
	chain, _ := r.signatures.Get(hash)
	for _, sig := range chain {
		if slices.Equal(sig.types, types) {
			return sig
		}
	}

	sig := &Signature{
		registry: r,
		types:    slices.Clone(types),
		sorted:   slices.Clone(types),
		hash:     hash,
	}
	slices.SortFunc(sig.sorted, byStructIndex)
	for i, ct := range sig.sorted {
		if ct.kind != structKind {
			panic(fmt.Errorf("ecs: signature type %s is not a struct component", ct.key))
		}
		if i > 0 && sig.sorted[i-1] == ct {
			panic(fmt.Errorf("ecs: duplicate component %s in signature", ct.key))
		}
		sig.archetypeHash ^= ct.typeHash
	}
	r.signatures.Put(hash, append(chain, sig))
	return sig
}

// Types returns the component types in declaration order.
func (s *Signature) Types() []*ComponentType { return s.types }

// ComponentCount returns the number of component types.
func (s *Signature) ComponentCount() int { return len(s.types) }

// Hash returns the order-sensitive signature hash.
func (s *Signature) Hash() uint64 { return s.hash }

// ArchetypeHash returns the order-independent hash of the matching archetype.
func (s *Signature) ArchetypeHash() uint64 { return s.archetypeHash }

func (s *Signature) String() string {
	keys := make([]string, len(s.types))
	for i, ct := range s.types {
		keys[i] = ct.key
	}
	return "Signature: [" + strings.Join(keys, ", ") + "]"
}
