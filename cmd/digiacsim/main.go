// Command digiacsim is a non-interactive driver for the Digiac-3080 core:
// it loads a memory image, optionally attaches a paper tape, runs or
// single-steps a fixed number of instructions, and prints a trace and
// final status. The interactive supervisor REPL described alongside this
// core is a separate, external collaborator (see SPEC_FULL.md, "EXPANSION —
// AMBIENT STACK"); this
// binary exists to exercise the core end to end without one.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/digiac3080/emulator/core"
)

var (
	imagePath  = flag.String("image", "", "path to a memory image file (required)")
	tapePath   = flag.String("tape", "", "path to a paper-tape byte file to attach")
	steps      = flag.Int("steps", -1, "number of instructions to execute; -1 runs until halted")
	startPC    = flag.String("pc", "0", "starting program counter (octal)")
	throttle   = flag.Uint64("ips", 0, "instructions-per-second throttle (0 disables it)")
	trace      = flag.Bool("trace", false, "print a trace line for every instruction")
	breakFlag  = flag.String("break", "", "comma-separated list of octal breakpoint addresses")
	showStatus = flag.Bool("status", true, "print final machine status")
)

func main() {
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "digiacsim: -image is required")
		flag.PrintDefaults()
		os.Exit(2)
	}

	mem := core.NewMemory()
	if err := loadImage(mem, *imagePath); err != nil {
		fmt.Fprintf(os.Stderr, "digiacsim: %v\n", err)
		os.Exit(1)
	}

	opts := []core.Option{
		core.WithMemory(mem),
		core.WithStdout(os.Stdout),
		core.WithThrottle(*throttle),
		core.WithTrace(*trace),
	}

	if *tapePath != "" {
		f, err := os.Open(*tapePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "digiacsim: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		opts = append(opts, core.WithTape(f))
	}

	cpu := core.NewCPU(opts...)
	pc, err := strconv.ParseUint(*startPC, 8, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digiacsim: bad -pc %q: %v\n", *startPC, err)
		os.Exit(2)
	}
	cpu.SetPC(uint16(pc))

	for _, addr := range parseOctalList(*breakFlag) {
		cpu.SetBreakpoint(addr)
	}

	var results []core.StepResult
	if *steps < 0 {
		results = cpu.Run()
	} else {
		results = cpu.StepN(*steps)
	}

	if *trace {
		for _, res := range results {
			fmt.Println(cpu.FormatTrace(res))
		}
	}

	if *showStatus {
		fmt.Println(cpu.Status())
	}
}

// loadImage populates mem from a text image: each non-blank, non-comment
// line is "addr word", both octal, e.g. "0010 +00000003". Lines starting
// with # are comments.
func loadImage(mem *core.Memory, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("%s:%d: expected \"addr word\", got %q", path, lineNo, line)
		}
		addr, err := strconv.ParseUint(fields[0], 8, 16)
		if err != nil {
			return fmt.Errorf("%s:%d: bad address %q: %w", path, lineNo, fields[0], err)
		}
		w, err := core.ParseDeposit(fields[1])
		if err != nil {
			return fmt.Errorf("%s:%d: bad word %q: %w", path, lineNo, fields[1], err)
		}
		mem.Write(uint16(addr), w)
	}
	return sc.Err()
}

// parseOctalList parses a comma-separated list of octal addresses, e.g.
// "0010,0020". An empty string yields no addresses.
func parseOctalList(csv string) []uint16 {
	if csv == "" {
		return nil
	}
	var out []uint16
	for _, field := range strings.Split(csv, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseUint(field, 8, 16)
		if err != nil {
			continue
		}
		out = append(out, uint16(v))
	}
	return out
}
