/*
 * um32 - opcode semantics and dispatch table
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
	"bufio"
	"fmt"
	"io"
)

// opcodeFunc executes one decoded instruction against vm. It returns
// whether the finger should advance by one afterward (false only for
// LoadProgram, which sets the finger itself) and any fatal error.
type opcodeFunc func(vm *VM, in Instruction) (advance bool, err error)

// dispatch is indexed by opcode, mirroring the function-table dispatch the
// reference CPU in this lineage builds in its own createTable: decoding is
// inlined into Step, and each table entry only ever sees its own already-
// decoded operands.
var dispatch = [numOpcodes]opcodeFunc{
	OpCondMove:    execCondMove,
	OpArrayIndex:  execArrayIndex,
	OpArrayAmend:  execArrayAmend,
	OpAdd:         execAdd,
	OpMul:         execMul,
	OpDiv:         execDiv,
	OpNotAnd:      execNotAnd,
	OpHalt:        execHalt,
	OpAlloc:       execAlloc,
	OpFree:        execFree,
	OpOutput:      execOutput,
	OpInput:       execInput,
	OpLoadProgram: execLoadProgram,
	OpOrtho:       execOrtho,
}

func execCondMove(vm *VM, in Instruction) (bool, error) {
	if vm.Reg[in.C] != 0 {
		vm.Reg[in.A] = vm.Reg[in.B]
	}
	return true, nil
}

func execArrayIndex(vm *VM, in Instruction) (bool, error) {
	v, err := vm.Mem.Read(vm.Reg[in.B], vm.Reg[in.C])
	if err != nil {
		return false, err
	}
	vm.Reg[in.A] = v
	return true, nil
}

func execArrayAmend(vm *VM, in Instruction) (bool, error) {
	if err := vm.Mem.Write(vm.Reg[in.A], vm.Reg[in.B], vm.Reg[in.C]); err != nil {
		return false, err
	}
	return true, nil
}

func execAdd(vm *VM, in Instruction) (bool, error) {
	vm.Reg[in.A] = vm.Reg[in.B] + vm.Reg[in.C]
	return true, nil
}

func execMul(vm *VM, in Instruction) (bool, error) {
	vm.Reg[in.A] = vm.Reg[in.B] * vm.Reg[in.C]
	return true, nil
}

func execDiv(vm *VM, in Instruction) (bool, error) {
	if vm.Reg[in.C] == 0 {
		return false, ErrDivideByZero
	}
	vm.Reg[in.A] = vm.Reg[in.B] / vm.Reg[in.C]
	return true, nil
}

func execNotAnd(vm *VM, in Instruction) (bool, error) {
	vm.Reg[in.A] = ^(vm.Reg[in.B] & vm.Reg[in.C])
	return true, nil
}

func execHalt(vm *VM, _ Instruction) (bool, error) {
	vm.halt()
	return false, nil
}

func execAlloc(vm *VM, in Instruction) (bool, error) {
	id, err := vm.Mem.Alloc(vm.Reg[in.C])
	if err != nil {
		return false, err
	}
	vm.Reg[in.B] = id
	return true, nil
}

func execFree(vm *VM, in Instruction) (bool, error) {
	if err := vm.Mem.Free(vm.Reg[in.C]); err != nil {
		return false, err
	}
	return true, nil
}

func execOutput(vm *VM, in Instruction) (bool, error) {
	v := vm.Reg[in.C]
	if v > 255 {
		return false, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	if err := vm.Out.WriteByte(byte(v)); err != nil {
		return false, fmt.Errorf("cpu: output: %w", err)
	}
	return true, nil
}

func execInput(vm *VM, in Instruction) (bool, error) {
	var b [1]byte
	_, err := io.ReadFull(vm.In, b[:])
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		vm.Reg[in.C] = 0xffffffff
	case err != nil:
		return false, fmt.Errorf("cpu: input: %w", err)
	default:
		vm.Reg[in.C] = uint32(b[0])
	}
	return true, nil
}

func execLoadProgram(vm *VM, in Instruction) (bool, error) {
	if err := vm.Mem.CloneToZero(vm.Reg[in.B]); err != nil {
		return false, err
	}
	vm.Finger = vm.Reg[in.C]
	return false, nil
}

func execOrtho(vm *VM, in Instruction) (bool, error) {
	vm.Reg[in.A] = in.Imm
	return true, nil
}

// bufferedOutput is the VM's stdout byte sink. It flushes after every byte
// so an interactive program's output reaches the terminal before the next
// Input blocks.
type bufferedOutput struct {
	w *bufio.Writer
}

func newBufferedOutput(w io.Writer) *bufferedOutput {
	return &bufferedOutput{w: bufio.NewWriter(w)}
}

func (b *bufferedOutput) WriteByte(c byte) error {
	if err := b.w.WriteByte(c); err != nil {
		return err
	}
	return b.w.Flush()
}
