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

package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rcornwell/um32/emu/memory"
)

func ortho(reg, val uint32) uint32 {
	return uint32(OpOrtho)<<28 | reg<<25 | (val & 0x01ffffff)
}

func standard(op, a, b, c uint32) uint32 {
	return op<<28 | a<<6 | b<<3 | c
}

func TestHaltOnly(t *testing.T) {
	vm := New([]uint32{standard(uint32(OpHalt), 0, 0, 0)}, strings.NewReader(""), &bytes.Buffer{})
	if err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.State != Halted {
		t.Errorf("State = %v, want Halted", vm.State)
	}
}

func TestPrintLetterA(t *testing.T) {
	var out bytes.Buffer
	prog := []uint32{
		ortho(0, 'A'),
		standard(uint32(OpOutput), 0, 0, 0),
		standard(uint32(OpHalt), 0, 0, 0),
	}
	vm := New(prog, strings.NewReader(""), &out)
	if err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.State != Halted {
		t.Fatalf("State = %v, want Halted", vm.State)
	}
	if out.String() != "A" {
		t.Errorf("output = %q, want %q", out.String(), "A")
	}
}

func TestEchoOneByteThenEOFSetsAllOnes(t *testing.T) {
	var out bytes.Buffer
	prog := []uint32{
		standard(uint32(OpInput), 0, 0, 1),  // read into r1
		standard(uint32(OpOutput), 0, 0, 1), // echo r1 -- faults once r1 is all-ones
		standard(uint32(OpInput), 0, 0, 1),  // second read hits EOF
		standard(uint32(OpHalt), 0, 0, 0),
	}
	vm := New(prog, strings.NewReader("z"), &out)

	vm.Step() // Input -> r1 = 'z'
	if vm.Reg[1] != uint32('z') {
		t.Fatalf("after first Input, r1 = %#x", vm.Reg[1])
	}
	vm.Step() // Output 'z'
	if vm.State != Running || out.String() != "z" {
		t.Fatalf("after Output, state=%v out=%q", vm.State, out.String())
	}
	vm.Step() // Input hits EOF
	if vm.State != Running {
		t.Fatalf("Input at EOF faulted: state=%v err=%v", vm.State, vm.Err)
	}
	if vm.Reg[1] != 0xffffffff {
		t.Errorf("r1 after EOF = %#x, want 0xffffffff", vm.Reg[1])
	}
	vm.Step() // Halt
	if vm.State != Halted {
		t.Errorf("State = %v, want Halted", vm.State)
	}
}

func TestOutputAboveByteRangeFaults(t *testing.T) {
	prog := []uint32{
		ortho(0, 256),
		standard(uint32(OpOutput), 0, 0, 0),
	}
	vm := New(prog, strings.NewReader(""), &bytes.Buffer{})
	if err := vm.Run(); err == nil {
		t.Fatal("Run: want error, got nil")
	}
	if vm.State != Faulted {
		t.Errorf("State = %v, want Faulted", vm.State)
	}
	if !errors.Is(vm.Err, ErrOutOfRange) {
		t.Errorf("Err = %v, want ErrOutOfRange", vm.Err)
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	prog := []uint32{
		standard(uint32(OpDiv), 0, 1, 2), // r2 is still zero
	}
	vm := New(prog, strings.NewReader(""), &bytes.Buffer{})
	if err := vm.Run(); err == nil {
		t.Fatal("Run: want error, got nil")
	}
	if !errors.Is(vm.Err, ErrDivideByZero) {
		t.Errorf("Err = %v, want ErrDivideByZero", vm.Err)
	}
}

func TestIllegalOpcodeFaults(t *testing.T) {
	vm := New([]uint32{15 << 28}, strings.NewReader(""), &bytes.Buffer{})
	if err := vm.Run(); err == nil {
		t.Fatal("Run: want error, got nil")
	}
	if !errors.Is(vm.Err, ErrIllegalOpcode) {
		t.Errorf("Err = %v, want ErrIllegalOpcode", vm.Err)
	}
}

func TestAllocZeroSizeReturnsNonProgramID(t *testing.T) {
	prog := []uint32{
		standard(uint32(OpAlloc), 0, 1, 2), // r1 = alloc(r2=0 words) -- size 0 is legal
		standard(uint32(OpHalt), 0, 0, 0),
	}
	vm := New(prog, strings.NewReader(""), &bytes.Buffer{})
	if err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.Reg[1] == 0 {
		t.Errorf("Alloc returned array 0 (the program array)")
	}
}

func TestLoadProgramJumpsWithoutAdvancing(t *testing.T) {
	// Loop that jumps to itself repeatedly via LoadProgram(r1=0 i.e. no clone,
	// r2=finger target), then halts. Exercises the "no automatic advance"
	// rule: the instruction at the target runs next, unmodified.
	prog := []uint32{
		standard(uint32(OpLoadProgram), 0, 1, 2), // r1=0, r2=0 -> jump to self forever unless changed
		standard(uint32(OpHalt), 0, 0, 0),
	}
	vm := New(prog, strings.NewReader(""), &bytes.Buffer{})
	// r1, r2 both start at zero, so this jumps to finger 0 repeatedly.
	// Run a bounded number of steps to prove it never drifts to the Halt
	// at word 1 on its own.
	for i := 0; i < 1000; i++ {
		vm.Step()
		if vm.State != Running {
			t.Fatalf("VM left Running state unexpectedly at step %d: %v", i, vm.Err)
		}
		if vm.Finger != 0 {
			t.Fatalf("Finger drifted to %d at step %d, want 0", vm.Finger, i)
		}
	}

	// Now point r2 at the halt instruction and single-step once more.
	vm.Reg[2] = 1
	vm.Step()
	if vm.Finger != 1 {
		t.Fatalf("Finger = %d, want 1", vm.Finger)
	}
	vm.Step()
	if vm.State != Halted {
		t.Errorf("State = %v, want Halted", vm.State)
	}
}

func TestLoadProgramClonesArray(t *testing.T) {
	vm := New([]uint32{standard(uint32(OpHalt), 0, 0, 0)}, strings.NewReader(""), &bytes.Buffer{})
	replacement, err := vm.Mem.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	halt := standard(uint32(OpHalt), 0, 0, 0)
	if err := vm.Mem.Write(replacement, 0, halt); err != nil {
		t.Fatalf("Write: %v", err)
	}
	vm.Reg[1] = replacement
	vm.Reg[2] = 0

	inst := Instruction{Op: OpLoadProgram, A: 0, B: 1, C: 2}
	advance, err := dispatch[OpLoadProgram](vm, inst)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if advance {
		t.Error("LoadProgram reported advance=true, want false")
	}
	if vm.Finger != 0 {
		t.Errorf("Finger = %d, want 0", vm.Finger)
	}
	w, err := vm.Mem.Read(0, 0)
	if err != nil || w != halt {
		t.Errorf("array 0 after clone = %#x, %v; want %#x, nil", w, err, halt)
	}
}

func TestMemoryFaultPropagatesFromArrayIndex(t *testing.T) {
	prog := []uint32{
		standard(uint32(OpArrayIndex), 0, 1, 2), // r1 names an array that was never allocated
	}
	vm := New(prog, strings.NewReader(""), &bytes.Buffer{})
	vm.Reg[1] = 77 // never allocated
	if err := vm.Run(); err == nil {
		t.Fatal("Run: want error, got nil")
	}
	if !errors.Is(vm.Err, memory.ErrNotLive) {
		t.Errorf("Err = %v, want memory.ErrNotLive", vm.Err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Running:   "running",
		Halted:    "halted",
		Faulted:   "faulted",
		State(99): "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
