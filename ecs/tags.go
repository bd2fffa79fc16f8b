package ecs

import "math/bits"

// Tags is a bitset of tag indexes, up to MaxTagTypes bits.
type Tags struct {
	bits [MaxTagTypes / 64]uint64
}

// TagsOf returns a Tags value with the given tags set.
func TagsOf(tags ...*TagType) Tags {
	var t Tags
	for _, tt := range tags {
		t.Add(tt)
	}
	return t
}

// Add sets the bit of tt.
func (t *Tags) Add(tt *TagType) {
	t.bits[tt.tagIndex>>6] |= 1 << (tt.tagIndex & 63)
}

// Remove clears the bit of tt.
func (t *Tags) Remove(tt *TagType) {
	t.bits[tt.tagIndex>>6] &^= 1 << (tt.tagIndex & 63)
}

// Has reports whether tt is set.
func (t Tags) Has(tt *TagType) bool {
	return t.bits[tt.tagIndex>>6]&(1<<(tt.tagIndex&63)) != 0
}

// HasAll reports whether every tag in other is set in t.
func (t Tags) HasAll(other Tags) bool {
	for i, w := range other.bits {
		if t.bits[i]&w != w {
			return false
		}
	}
	return true
}

// HasAny reports whether t and other share at least one tag.
func (t Tags) HasAny(other Tags) bool {
	for i, w := range other.bits {
		if t.bits[i]&w != 0 {
			return true
		}
	}
	return false
}

// Count returns the number of set tags.
func (t Tags) Count() int {
	n := 0
	for _, w := range t.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether no tag is set.
func (t Tags) IsEmpty() bool {
	return t == Tags{}
}

// Indexes returns the set tag indexes in ascending order.
func (t Tags) Indexes() []int {
	out := make([]int, 0, t.Count())
	for i, w := range t.bits {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, i*64+b)
			w &^= 1 << b
		}
	}
	return out
}

// hash folds the type hashes of all set tags.
func (t Tags) hash(r *ComponentRegistry) uint64 {
	var h uint64
	for i, w := range t.bits {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			h ^= r.tags[i*64+b].typeHash
			w &^= 1 << b
		}
	}
	return h
}

func (t Tags) union(other Tags) Tags {
	for i, w := range other.bits {
		t.bits[i] |= w
	}
	return t
}

func (t Tags) difference(other Tags) Tags {
	for i, w := range other.bits {
		t.bits[i] &^= w
	}
	return t
}
