/*
 * um32 - UM-32 disassembler
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

// Package disasm renders UM-32 instruction words as assembler-style text,
// one line per word, in the syntax package asm accepts as input.
package disasm

import (
	"fmt"
	"strings"

	"github.com/rcornwell/um32/emu/cpu"
)

// form describes how an opcode's operands are printed.
type form int

const (
	formABC  form = iota // "mnem rA, rB, rC"
	formBC               // "mnem rB, rC" (A is unused)
	formA                // "mnem rA" (B, C unused)
	formC                // "mnem rC" (A, B unused)
	formNone             // "mnem"
	formOrtho            // "mnem rA, imm"
)

type opcode struct {
	mnemonic string
	form     form
}

// opMap names every legal opcode, mirroring the table-driven style the
// reference disassembler in this lineage uses for its own instruction set.
var opMap = map[uint32]opcode{
	uint32(cpu.OpCondMove):    {"cmov", formABC},
	uint32(cpu.OpArrayIndex):  {"index", formABC},
	uint32(cpu.OpArrayAmend):  {"amend", formABC},
	uint32(cpu.OpAdd):         {"add", formABC},
	uint32(cpu.OpMul):         {"mul", formABC},
	uint32(cpu.OpDiv):         {"div", formABC},
	uint32(cpu.OpNotAnd):      {"nand", formABC},
	uint32(cpu.OpHalt):        {"halt", formNone},
	uint32(cpu.OpAlloc):       {"alloc", formBC},
	uint32(cpu.OpFree):        {"free", formC},
	uint32(cpu.OpOutput):      {"out", formC},
	uint32(cpu.OpInput):       {"in", formC},
	uint32(cpu.OpLoadProgram): {"loadprog", formBC},
	uint32(cpu.OpOrtho):       {"ortho", formOrtho},
}

// Line renders one instruction word in assembler syntax. A word whose
// opcode is illegal, or whose instruction is otherwise malformed, falls
// back to a ".word 0x........" directive rather than an error: disassembly
// must never fail on data words mixed into a program image.
func Line(w uint32) string {
	in, err := cpu.Decode(w)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", w)
	}
	op, ok := opMap[in.Op]
	if !ok {
		return fmt.Sprintf(".word 0x%08x", w)
	}

	switch op.form {
	case formABC:
		return fmt.Sprintf("%s r%d, r%d, r%d", op.mnemonic, in.A, in.B, in.C)
	case formBC:
		return fmt.Sprintf("%s r%d, r%d", op.mnemonic, in.B, in.C)
	case formA:
		return fmt.Sprintf("%s r%d", op.mnemonic, in.A)
	case formC:
		return fmt.Sprintf("%s r%d", op.mnemonic, in.C)
	case formNone:
		return op.mnemonic
	case formOrtho:
		return fmt.Sprintf("ortho r%d, %d", in.A, in.Imm)
	default:
		return fmt.Sprintf(".word 0x%08x", w)
	}
}

// Program renders an entire program image, one disassembled line per word,
// prefixed with its word offset.
func Program(words []uint32) string {
	var b strings.Builder
	for i, w := range words {
		fmt.Fprintf(&b, "%6d: %s\n", i, Line(w))
	}
	return b.String()
}
