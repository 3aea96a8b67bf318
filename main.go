/*
 * um32 - Main process.
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

package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/um32/emu/asm"
	"github.com/rcornwell/um32/emu/cpu"
	"github.com/rcornwell/um32/emu/disasm"
	hex "github.com/rcornwell/um32/util/hex"
	logger "github.com/rcornwell/um32/util/logger"
)

var Logger *slog.Logger

// Exit codes: 0 the machine halted normally, 1 the machine faulted during
// execution, 2 the command line or input file was malformed.
const (
	exitOK = iota
	exitFault
	exitUsage
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	sub := os.Args[1]
	os.Args = os.Args[1:]

	var code int
	switch sub {
	case "run":
		code = runMain()
	case "disasm":
		code = disasmMain()
	case "asm":
		code = asmMain()
	case "-h", "--help", "help":
		usage()
		code = exitOK
	default:
		fmt.Fprintf(os.Stderr, "um32: unknown subcommand %q\n", sub)
		usage()
		code = exitUsage
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: um32 run|disasm|asm [options] <file>")
}

func newLogger(logFile string) *slog.Logger {
	var file *os.File
	if logFile != "" {
		file, _ = os.Create(logFile)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	debug := false
	l := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: level, AddSource: false}, &debug))
	slog.SetDefault(l)
	return l
}

func runMain() int {
	set := getopt.New()
	optLog := set.StringLong("log", 'l', "", "Log file")
	optHelp := set.BoolLong("help", 'h', "Help")
	if err := set.Getopt(os.Args, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if *optHelp {
		set.PrintUsage(os.Stderr)
		return exitOK
	}
	args := set.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "um32 run: expected exactly one program file")
		return exitUsage
	}

	Logger = newLogger(*optLog)
	Logger.Info("um32 starting", "program", args[0])

	prog, err := loadProgram(args[0])
	if err != nil {
		Logger.Error("failed to load program", "error", err.Error())
		return exitUsage
	}

	vm := cpu.New(prog, os.Stdin, os.Stdout)
	if err := vm.Run(); err != nil {
		Logger.Error("machine fault", "error", err.Error())
		dumpState(vm)
		return exitFault
	}
	Logger.Info("um32 halted cleanly")
	return exitOK
}

func dumpState(vm *cpu.VM) {
	var b strings.Builder
	b.WriteString("registers: ")
	hex.FormatWord(&b, vm.Reg[:])
	Logger.Error(b.String(), "finger", vm.Finger)
}

func disasmMain() int {
	set := getopt.New()
	optHelp := set.BoolLong("help", 'h', "Help")
	if err := set.Getopt(os.Args, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if *optHelp {
		set.PrintUsage(os.Stderr)
		return exitOK
	}
	args := set.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "um32 disasm: expected exactly one program file")
		return exitUsage
	}

	prog, err := loadProgram(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	fmt.Print(disasm.Program(prog))
	return exitOK
}

func asmMain() int {
	set := getopt.New()
	optOut := set.StringLong("output", 'o', "", "Output file (default stdout)")
	optHelp := set.BoolLong("help", 'h', "Help")
	if err := set.Getopt(os.Args, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if *optHelp {
		set.PrintUsage(os.Stderr)
		return exitOK
	}
	args := set.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "um32 asm: expected exactly one source file")
		return exitUsage
	}

	src, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	defer src.Close()

	prog, err := asm.Assemble(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	out := os.Stdout
	if *optOut != "" {
		f, err := os.Create(*optOut)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}
		defer f.Close()
		out = f
	}
	for _, w := range prog {
		if err := binary.Write(out, binary.BigEndian, w); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}
	}
	return exitOK
}

// loadProgram reads a UM-32 program image: a sequence of big-endian 32-bit
// words. A file whose length is not a multiple of four is rejected.
func loadProgram(path string) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("um32: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("um32: %s: length %d is not a multiple of 4", path, len(raw))
	}
	prog := make([]uint32, len(raw)/4)
	for i := range prog {
		prog[i] = binary.BigEndian.Uint32(raw[i*4:])
	}
	return prog, nil
}
