/*
 * um32 - Segmented memory manager
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package memory implements the UM-32 segmented store: an ordered collection
// of word arrays named by 32-bit identifiers, with array 0 permanently bound
// to the running program image.
package memory

import (
	"container/heap"
	"errors"
	"fmt"
)

// Fatal conditions a Mem operation can return. Every one of these is an
// ordinary error value, never a panic: they correspond to spec-defined
// program faults, not implementation bugs, and the caller routes them to
// the diagnostic channel rather than crashing the process.
var (
	// ErrNotLive means the identifier names no live array: either it was
	// never allocated, or it was allocated and has since been freed.
	ErrNotLive = errors.New("memory: array not live")
	// ErrOutOfBounds means the offset is at or beyond the array's length.
	ErrOutOfBounds = errors.New("memory: offset out of bounds")
	// ErrFreeProgram means a program tried to free array 0.
	ErrFreeProgram = errors.New("memory: cannot free array 0")
	// ErrIDSpace means the 32-bit identifier space is exhausted.
	ErrIDSpace = errors.New("memory: identifier space exhausted")
)

// idHeap is a min-heap of retired, reusable identifiers. Alloc always draws
// the smallest one: the next-ID sequence is an observable, tested property
// of the machine, not an implementation detail.
type idHeap []uint32

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(uint32)) }

func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

type arraySlot struct {
	data []uint32
	live bool
}

// Mem owns every array a running UM-32 program can name. The zero value is
// not ready for use; call New.
type Mem struct {
	arrays []arraySlot
	free   idHeap
}

// New returns a Mem with array 0 initialized from prog. prog is copied, so
// the caller's slice may be reused or mutated afterward.
func New(prog []uint32) *Mem {
	m := &Mem{
		arrays: []arraySlot{{data: append([]uint32(nil), prog...), live: true}},
	}
	heap.Init(&m.free)
	return m
}

// Alloc creates a new live array of size words, all zero, and returns its
// identifier. It reuses the smallest retired identifier if one exists,
// otherwise it issues a fresh identifier equal to the current array count.
func (m *Mem) Alloc(size uint32) (uint32, error) {
	if len(m.free) > 0 {
		id := heap.Pop(&m.free).(uint32)
		m.arrays[id] = arraySlot{data: make([]uint32, size), live: true}
		return id, nil
	}
	if uint64(len(m.arrays)) >= 1<<32 {
		return 0, ErrIDSpace
	}
	id := uint32(len(m.arrays))
	m.arrays = append(m.arrays, arraySlot{data: make([]uint32, size), live: true})
	return id, nil
}

// Free retires id, releasing the underlying array immediately so a program
// that allocates and frees indefinitely does not grow resident set without
// bound.
func (m *Mem) Free(id uint32) error {
	if id == 0 {
		return ErrFreeProgram
	}
	slot, err := m.live(id)
	if err != nil {
		return err
	}
	slot.data = nil
	slot.live = false
	heap.Push(&m.free, id)
	return nil
}

// Read returns array[id][off].
func (m *Mem) Read(id, off uint32) (uint32, error) {
	slot, err := m.live(id)
	if err != nil {
		return 0, err
	}
	if off >= uint32(len(slot.data)) {
		return 0, fmt.Errorf("%w: array %d offset %d (len %d)", ErrOutOfBounds, id, off, len(slot.data))
	}
	return slot.data[off], nil
}

// Write sets array[id][off] = v.
func (m *Mem) Write(id, off, v uint32) error {
	slot, err := m.live(id)
	if err != nil {
		return err
	}
	if off >= uint32(len(slot.data)) {
		return fmt.Errorf("%w: array %d offset %d (len %d)", ErrOutOfBounds, id, off, len(slot.data))
	}
	slot.data[off] = v
	return nil
}

// CloneToZero replaces the contents of array 0 with a copy of array src.
// When src is 0 this is a no-op at the observable level and the copy is
// elided.
func (m *Mem) CloneToZero(src uint32) error {
	if src == 0 {
		return nil
	}
	slot, err := m.live(src)
	if err != nil {
		return err
	}
	m.arrays[0].data = append([]uint32(nil), slot.data...)
	return nil
}

// ProgramLen returns the current length of array 0, the program image.
func (m *Mem) ProgramLen() uint32 {
	return uint32(len(m.arrays[0].data))
}

// live returns the slot for id if it names a currently live array.
func (m *Mem) live(id uint32) (*arraySlot, error) {
	if id >= uint32(len(m.arrays)) {
		return nil, fmt.Errorf("%w: array %d was never allocated", ErrNotLive, id)
	}
	if !m.arrays[id].live {
		return nil, fmt.Errorf("%w: array %d was freed", ErrNotLive, id)
	}
	return &m.arrays[id], nil
}
