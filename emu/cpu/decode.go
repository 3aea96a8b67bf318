/*
 * um32 - Instruction decoder
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
	"errors"
	"fmt"
)

// Opcode numbers, bits 31..28 of every instruction word.
const (
	OpCondMove = iota
	OpArrayIndex
	OpArrayAmend
	OpAdd
	OpMul
	OpDiv
	OpNotAnd
	OpHalt
	OpAlloc
	OpFree
	OpOutput
	OpInput
	OpLoadProgram
	OpOrtho

	numOpcodes
)

// ErrIllegalOpcode is returned by Decode for any opcode value >= 14.
var ErrIllegalOpcode = errors.New("cpu: illegal opcode")

// Instruction is the decoded form of one instruction word. Op is always
// valid on a successful Decode; the remaining fields are populated
// according to the instruction's form (A/B/C for opcodes 0..12, A/Imm for
// opcode 13) and are zero otherwise.
type Instruction struct {
	Op  uint32
	A   uint32
	B   uint32
	C   uint32
	Imm uint32
}

// Decode extracts the opcode and operands from a raw instruction word. It
// is a pure function: the same word always decodes to the same
// Instruction, and it has no side effects. It is the single place in the
// package where the bit layout of an instruction word is interpreted.
func Decode(w uint32) (Instruction, error) {
	op := w >> 28
	if op >= numOpcodes {
		return Instruction{}, fmt.Errorf("%w: %d", ErrIllegalOpcode, op)
	}
	if op == OpOrtho {
		return Instruction{
			Op:  op,
			A:   (w >> 25) & 0x7,
			Imm: w & 0x01ffffff,
		}, nil
	}
	return Instruction{
		Op: op,
		A:  (w >> 6) & 0x7,
		B:  (w >> 3) & 0x7,
		C:  w & 0x7,
	}, nil
}
