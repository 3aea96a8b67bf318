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

// Package asm assembles the line-oriented text form package disasm emits
// back into a UM-32 program image. It is a line assembler: no labels, no
// expressions, one instruction or directive per line.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rcornwell/um32/emu/cpu"
)

// Errors an Assemble call can return, always wrapped with a line number.
var (
	ErrUnknownMnemonic = errors.New("asm: unknown mnemonic")
	ErrBadOperand      = errors.New("asm: bad operand")
	ErrWrongOperands   = errors.New("asm: wrong number of operands")
)

type operandKind int

const (
	operandABC operandKind = iota
	operandBC
	operandC
	operandNone
	operandOrtho
)

type mnemonic struct {
	op      uint32
	operand operandKind
}

// mnemonics mirrors disasm's opMap in reverse: every mnemonic it emits is
// accepted back here with the same operand shape.
var mnemonics = map[string]mnemonic{
	"cmov":     {uint32(cpu.OpCondMove), operandABC},
	"index":    {uint32(cpu.OpArrayIndex), operandABC},
	"amend":    {uint32(cpu.OpArrayAmend), operandABC},
	"add":      {uint32(cpu.OpAdd), operandABC},
	"mul":      {uint32(cpu.OpMul), operandABC},
	"div":      {uint32(cpu.OpDiv), operandABC},
	"nand":     {uint32(cpu.OpNotAnd), operandABC},
	"halt":     {uint32(cpu.OpHalt), operandNone},
	"alloc":    {uint32(cpu.OpAlloc), operandBC},
	"free":     {uint32(cpu.OpFree), operandC},
	"out":      {uint32(cpu.OpOutput), operandC},
	"in":       {uint32(cpu.OpInput), operandC},
	"loadprog": {uint32(cpu.OpLoadProgram), operandBC},
	"ortho":    {uint32(cpu.OpOrtho), operandOrtho},
}

// Assemble reads source text line by line and returns the assembled
// program image. Everything from a '#' to the end of the line is a
// comment, and blank lines are skipped. A ".word 0xHHHHHHHH" directive emits its literal value
// unchanged, the same escape hatch disasm falls back to for data words.
func Assemble(r io.Reader) ([]uint32, error) {
	var prog []uint32
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		w, err := assembleLine(fields)
		if err != nil {
			return nil, fmt.Errorf("asm: line %d: %w", lineNo, err)
		}
		prog = append(prog, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}
	return prog, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return line
}

func assembleLine(fields []string) (uint32, error) {
	name := strings.ToLower(fields[0])
	operands := fields[1:]

	if name == ".word" {
		if len(operands) != 1 {
			return 0, fmt.Errorf("%w: .word takes one operand", ErrWrongOperands)
		}
		return parseWord(operands[0])
	}

	m, ok := mnemonics[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMnemonic, fields[0])
	}

	switch m.operand {
	case operandABC:
		a, b, c, err := parseABC(operands)
		if err != nil {
			return 0, err
		}
		return m.op<<28 | a<<6 | b<<3 | c, nil
	case operandBC:
		regs, err := parseRegisters(operands, 2)
		if err != nil {
			return 0, err
		}
		return m.op<<28 | regs[0]<<3 | regs[1], nil
	case operandC:
		regs, err := parseRegisters(operands, 1)
		if err != nil {
			return 0, err
		}
		return m.op<<28 | regs[0], nil
	case operandNone:
		if len(operands) != 0 {
			return 0, fmt.Errorf("%w: %s takes no operands", ErrWrongOperands, name)
		}
		return m.op << 28, nil
	case operandOrtho:
		return assembleOrtho(m.op, operands)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMnemonic, name)
	}
}

func parseABC(operands []string) (a, b, c uint32, err error) {
	regs, err := parseRegisters(operands, 3)
	if err != nil {
		return 0, 0, 0, err
	}
	return regs[0], regs[1], regs[2], nil
}

func assembleOrtho(op uint32, operands []string) (uint32, error) {
	if len(operands) != 2 {
		return 0, fmt.Errorf("%w: ortho takes a register and an immediate", ErrWrongOperands)
	}
	regs, err := parseRegisters(operands[:1], 1)
	if err != nil {
		return 0, err
	}
	imm, err := strconv.ParseUint(operands[1], 0, 32)
	if err != nil || imm > 0x01ffffff {
		return 0, fmt.Errorf("%w: immediate %q out of range", ErrBadOperand, operands[1])
	}
	return op<<28 | regs[0]<<25 | uint32(imm), nil
}

// parseRegisters parses exactly want "rN" operands, each optionally
// followed by a comma.
func parseRegisters(operands []string, want int) ([]uint32, error) {
	if len(operands) != want {
		return nil, fmt.Errorf("%w: want %d register(s), got %d", ErrWrongOperands, want, len(operands))
	}
	regs := make([]uint32, want)
	for i, tok := range operands {
		tok = strings.TrimSuffix(tok, ",")
		n, err := parseRegister(tok)
		if err != nil {
			return nil, err
		}
		regs[i] = n
	}
	return regs, nil
}

func parseRegister(tok string) (uint32, error) {
	if !strings.HasPrefix(tok, "r") {
		return 0, fmt.Errorf("%w: %q is not a register", ErrBadOperand, tok)
	}
	n, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil || n > 7 {
		return 0, fmt.Errorf("%w: %q is not a register 0..7", ErrBadOperand, tok)
	}
	return uint32(n), nil
}

func parseWord(tok string) (uint32, error) {
	n, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a 32-bit literal", ErrBadOperand, tok)
	}
	return uint32(n), nil
}
