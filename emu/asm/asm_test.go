/*
 * um32 - UM-32 assembler
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

package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/rcornwell/um32/emu/cpu"
	"github.com/rcornwell/um32/emu/disasm"
)

func TestAssembleHelloAHalt(t *testing.T) {
	src := "ortho r0, 65\nout r0\nhalt\n"
	prog, err := Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(prog) != 3 {
		t.Fatalf("len(prog) = %d, want 3", len(prog))
	}
	for i, w := range prog {
		in, err := cpu.Decode(w)
		if err != nil {
			t.Fatalf("word %d: Decode: %v", i, err)
		}
		_ = in
	}
}

func TestAssembleSkipsBlankAndCommentLines(t *testing.T) {
	src := "\n# a comment\nhalt # trailing comment\n\n"
	prog, err := Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(prog) != 1 {
		t.Fatalf("len(prog) = %d, want 1", len(prog))
	}
}

func TestAssembleWordDirective(t *testing.T) {
	prog, err := Assemble(strings.NewReader(".word 0xdeadbeef\n"))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(prog) != 1 || prog[0] != 0xdeadbeef {
		t.Fatalf("prog = %#v, want [0xdeadbeef]", prog)
	}
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, err := Assemble(strings.NewReader("frobnicate r0\n"))
	if !errors.Is(err, ErrUnknownMnemonic) {
		t.Errorf("err = %v, want ErrUnknownMnemonic", err)
	}
}

func TestAssembleWrongOperandCount(t *testing.T) {
	_, err := Assemble(strings.NewReader("add r0, r1\n"))
	if !errors.Is(err, ErrWrongOperands) {
		t.Errorf("err = %v, want ErrWrongOperands", err)
	}
}

func TestAssembleBadRegister(t *testing.T) {
	_, err := Assemble(strings.NewReader("out r9\n"))
	if !errors.Is(err, ErrBadOperand) {
		t.Errorf("err = %v, want ErrBadOperand", err)
	}
}

func TestAssembleOrthoImmediateOutOfRange(t *testing.T) {
	_, err := Assemble(strings.NewReader("ortho r0, 99999999\n"))
	if !errors.Is(err, ErrBadOperand) {
		t.Errorf("err = %v, want ErrBadOperand", err)
	}
}

// Round trip: everything asm emits from disasm's own output should
// assemble back to the identical word.
func TestRoundTripWithDisasm(t *testing.T) {
	words := []uint32{
		uint32(cpu.OpAdd)<<28 | 1<<6 | 2<<3 | 3,
		uint32(cpu.OpHalt) << 28,
		uint32(cpu.OpOrtho)<<28 | 5<<25 | 12345,
		uint32(cpu.OpOutput)<<28 | 6,
		uint32(cpu.OpAlloc)<<28 | 2<<3 | 3,
	}
	var src strings.Builder
	for _, w := range words {
		src.WriteString(disasm.Line(w))
		src.WriteByte('\n')
	}
	got, err := Assemble(strings.NewReader(src.String()))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(got) != len(words) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(words))
	}
	for i := range words {
		if got[i] != words[i] {
			t.Errorf("word %d = %#x, want %#x", i, got[i], words[i])
		}
	}
}
