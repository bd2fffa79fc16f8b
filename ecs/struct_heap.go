package ecs

import (
	"fmt"
	"unsafe"

	"gopkg.in/yaml.v3"
)

const (
	structHeapChunkShift = 9
	// StructHeapChunkSize is the number of component slots per heap chunk.
	StructHeapChunkSize = 1 << structHeapChunkShift
	structHeapChunkMask = StructHeapChunkSize - 1
)

// structHeap is the type-erased view of a StructHeap used by Archetype.
type structHeap interface {
	componentType() *ComponentType
	appendDefault() int
	removeSwapLast(slot int) int
	copyTo(fromSlot int, dst structHeap, toSlot int)
	getAny(slot int) any
	setAny(slot int, value any) bool
	pointer(slot int) unsafe.Pointer
	encode(slot int) (yaml.Node, error)
	length() int
}

// StructHeap stores the values of one component type for one archetype.
// Values live in fixed-size chunks; slot i of every heap in an archetype belongs
// to the same entity.
type StructHeap[T any] struct {
	ct     *ComponentType
	chunks []*[StructHeapChunkSize]T
	count  int
}

func newStructHeap[T any](ct *ComponentType, capacity int) *StructHeap[T] {
	h := &StructHeap[T]{ct: ct}
	n := (capacity + StructHeapChunkSize - 1) >> structHeapChunkShift
	if n > 0 {
		h.chunks = make([]*[StructHeapChunkSize]T, n)
		for i := range h.chunks {
			h.chunks[i] = new([StructHeapChunkSize]T)
		}
	}
	return h
}

// Len returns the number of live slots.
func (h *StructHeap[T]) Len() int {
	return h.count
}

// ComponentType returns the component type stored in the heap.
func (h *StructHeap[T]) ComponentType() *ComponentType {
	return h.ct
}

// AppendEntity appends a zero-valued slot and returns its index.
func (h *StructHeap[T]) AppendEntity() int {
	slot := h.count
	if slot>>structHeapChunkShift == len(h.chunks) {
		h.chunks = append(h.chunks, new([StructHeapChunkSize]T))
	}
	h.count++
	return slot
}

// Get returns a pointer into the heap. It is valid until the next structural
// change of the owning archetype.
func (h *StructHeap[T]) Get(slot int) *T {
	return &h.chunks[slot>>structHeapChunkShift][slot&structHeapChunkMask]
}

// Set overwrites the value at slot.
func (h *StructHeap[T]) Set(slot int, value T) {
	h.chunks[slot>>structHeapChunkShift][slot&structHeapChunkMask] = value
}

// RemoveSwapLast moves the last value into slot, zeroes the vacated last slot and
// returns the index the moved value came from.
func (h *StructHeap[T]) RemoveSwapLast(slot int) int {
	last := h.count - 1
	lastPtr := h.Get(last)
	if slot != last {
		*h.Get(slot) = *lastPtr
	}
	var zero T
	*lastPtr = zero
	h.count = last
	return last
}

// GetComponentDebug returns a boxed copy of the value at slot.
func (h *StructHeap[T]) GetComponentDebug(slot int) any {
	return *h.Get(slot)
}

func (h *StructHeap[T]) String() string {
	return fmt.Sprintf("[%s] heap - count: %d", h.ct.key, h.count)
}

func (h *StructHeap[T]) componentType() *ComponentType { return h.ct }

func (h *StructHeap[T]) appendDefault() int { return h.AppendEntity() }

func (h *StructHeap[T]) removeSwapLast(slot int) int { return h.RemoveSwapLast(slot) }

func (h *StructHeap[T]) copyTo(fromSlot int, dst structHeap, toSlot int) {
	dst.(*StructHeap[T]).Set(toSlot, *h.Get(fromSlot))
}

func (h *StructHeap[T]) getAny(slot int) any {
	return h.Get(slot)
}

func (h *StructHeap[T]) setAny(slot int, value any) bool {
	switch v := value.(type) {
	case T:
		h.Set(slot, v)
	case *T:
		h.Set(slot, *v)
	default:
		return false
	}
	return true
}

func (h *StructHeap[T]) pointer(slot int) unsafe.Pointer {
	return unsafe.Pointer(h.Get(slot))
}

func (h *StructHeap[T]) encode(slot int) (yaml.Node, error) {
	var node yaml.Node
	err := node.Encode(h.Get(slot))
	return node, err
}

func (h *StructHeap[T]) length() int { return h.count }
