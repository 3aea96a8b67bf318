/*
 * um32 - main instruction fetch and execute
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

// Package cpu implements the UM-32 fetch-decode-execute cycle: eight
// general registers, a 32-bit execution finger, and the fourteen-opcode
// dispatch table that drives the memory manager in package memory.
package cpu

import (
	"errors"
	"fmt"
	"io"

	"github.com/rcornwell/um32/emu/memory"
)

// Opcode-independent fatal conditions.
var (
	ErrDivideByZero = errors.New("cpu: division by zero")
	ErrOutOfRange   = errors.New("cpu: output value above 255")
)

// State is the lifecycle of a VM: Running until a Halt or a fatal
// condition moves it to one of the two terminal states.
type State int

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// VM holds the eight general-purpose registers and execution finger of a
// UM-32 machine, driving a memory.Mem through the fetch-decode-execute
// cycle. VM does not know about files, exit codes, or logging; main wires
// those around it.
type VM struct {
	Reg    [8]uint32
	Finger uint32
	Mem    *memory.Mem

	In  io.Reader
	Out *bufferedOutput

	State State
	// Err is set when State == Faulted, naming the fatal condition.
	Err error
}

// New returns a VM ready to execute prog, reading Input bytes from in and
// writing Output bytes to out. Output is flushed after every byte (see
// bufferedOutput), so an interactive program's prompts are visible before
// the next Input blocks.
func New(prog []uint32, in io.Reader, out io.Writer) *VM {
	return &VM{
		Mem:   memory.New(prog),
		In:    in,
		Out:   newBufferedOutput(out),
		State: Running,
	}
}

// Run drives the fetch-decode-execute cycle until the VM halts or faults,
// and returns the terminal state's error, if any.
func (vm *VM) Run() error {
	for vm.State == Running {
		vm.Step()
	}
	return vm.Err
}

// Step executes exactly one instruction. It is exported so callers (tests,
// a future single-step debugger) can drive the machine one cycle at a
// time; Run is simply a loop around Step.
func (vm *VM) Step() {
	if vm.State != Running {
		return
	}

	w, err := vm.Mem.Read(0, vm.Finger)
	if err != nil {
		vm.fault(err)
		return
	}

	inst, err := Decode(w)
	if err != nil {
		vm.fault(err)
		return
	}

	advance, err := dispatch[inst.Op](vm, inst)
	if err != nil {
		vm.fault(err)
		return
	}
	if vm.State != Running {
		return
	}
	if advance {
		vm.Finger++
	}
}

func (vm *VM) fault(err error) {
	vm.State = Faulted
	vm.Err = fmt.Errorf("at finger %d: %w", vm.Finger, err)
}

func (vm *VM) halt() {
	vm.State = Halted
}
