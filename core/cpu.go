package core

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/digiac3080/emulator/insts"
)

// ErrInterrupted is returned by a KeySource when the user sends Control-C
// during a blocking keyboard read (§4.4, §5).
var ErrInterrupted = errors.New("Control-C")

// KeySource supplies single characters to the Type In instruction. The
// terminal-handling library that reads one raw keystroke at a time is an
// external collaborator (§1); the core only depends on this interface, the
// way the teacher depends on io.Reader/io.Writer for its syscall handler
// rather than owning a terminal itself.
type KeySource interface {
	// ReadKey blocks for one keystroke and returns it. It returns
	// ErrInterrupted for Control-C, or io.EOF if input is exhausted.
	ReadKey() (rune, error)
}

// noKeySource is installed when no keyboard is attached; every read is a
// clean EOF rather than a nil-pointer panic.
type noKeySource struct{}

func (noKeySource) ReadKey() (rune, error) { return 0, io.EOF }

// StepResult is the outcome of one fetch/decode/execute cycle, or of a
// breakpoint stopping the CPU before one. It is the unit the supervisor's
// trace formatter and status display are built from.
type StepResult struct {
	PC          uint16 // PC at which the instruction was fetched (or the breakpoint hit)
	Instruction uint32 // raw instruction word, valid only when Fetched is true
	Fetched     bool   // false for a breakpoint stop that pre-empted fetch
	Effect      string // human-readable description, e.g. "A      <- +00000007"
	Halted      bool   // run flag is false after this result
}

// CPU is the Digiac-3080 processor: registers, the memory it drives, the
// attached peripherals, and the instrumentation a supervisor uses to run it
// (§4.5). The supervisor owns the CPU and passes a mutable borrow into each
// command; there is no package-level shared state (§9 "Global CPU
// singleton").
type CPU struct {
	mem *Memory
	a   Word
	b   Word
	pc  uint16

	decoder          *insts.Decoder
	instructionCount uint64
	ips              uint64 // instructions/sec throttle; 0 disables it
	run              bool

	breakpoints map[uint16]struct{}
	acstops     map[uint16]struct{}
	acsReports  []string

	trace bool

	tape *TapeReader
	keys KeySource

	stdout io.Writer
}

// Option configures a CPU at construction time.
type Option func(*CPU)

// WithThrottle sets the initial instructions-per-second throttle. 0
// disables throttling. If omitted, the machine defaults to 60 ips, the
// original reference implementation's power-on default.
func WithThrottle(ips uint64) Option {
	return func(c *CPU) { c.ips = ips }
}

// WithTape attaches a paper-tape byte stream for RT to read from.
func WithTape(src io.Reader) Option {
	return func(c *CPU) { c.tape = NewTapeReader(src) }
}

// WithKeySource attaches the keyboard character source TI reads from.
func WithKeySource(ks KeySource) Option {
	return func(c *CPU) { c.keys = ks }
}

// WithStdout sets the writer Type Alpha output and the keyboard bell/echo
// go to. Defaults to io.Discard if not set, so tests never touch the real
// terminal unless they ask to.
func WithStdout(w io.Writer) Option {
	return func(c *CPU) { c.stdout = w }
}

// WithMemory installs a pre-built Memory instead of a freshly randomized
// one, for deterministic tests.
func WithMemory(m *Memory) Option {
	return func(c *CPU) { c.mem = m }
}

// WithTrace enables the trace flag at construction time.
func WithTrace(on bool) Option {
	return func(c *CPU) { c.trace = on }
}

// NewCPU creates a Digiac-3080 CPU with randomized memory, zeroed A/B/PC,
// no attached tape or keyboard, and the original's 60 ips power-on
// throttle default (see DESIGN.md, "Throttle default").
func NewCPU(opts ...Option) *CPU {
	c := &CPU{
		mem:         NewMemory(),
		decoder:     insts.NewDecoder(),
		ips:         60,
		run:         true,
		breakpoints: make(map[uint16]struct{}),
		acstops:     make(map[uint16]struct{}),
		keys:        noKeySource{},
		stdout:      io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mem.SetTap(c.memTap)
	return c
}

// memTap is installed on Memory and fires on every read/write; it is how
// address-compare stops observe memory traffic without Memory knowing
// anything about breakpoints (§4.5, §7).
func (c *CPU) memTap(addr uint16, write bool) {
	if _, hit := c.acstops[addr]; !hit {
		return
	}
	c.run = false
	dir := "Read"
	if write {
		dir = "Write"
	}
	c.acsReports = append(c.acsReports, fmt.Sprintf("%s Memory address Compare Stop @ %04o", dir, addr))
}

// Memory returns the CPU's memory, for supervisor peek/poke and for the
// demo driver to load an image before running.
func (c *CPU) Memory() *Memory { return c.mem }

// A returns the accumulator.
func (c *CPU) A() Word { return c.a }

// B returns the auxiliary register.
func (c *CPU) B() Word { return c.b }

// PC returns the program counter.
func (c *CPU) PC() uint16 { return c.pc }

// SetA pokes the accumulator (supervisor DEPOSIT A).
func (c *CPU) SetA(w Word) { c.a = w }

// SetB pokes the auxiliary register (supervisor DEPOSIT B).
func (c *CPU) SetB(w Word) { c.b = w }

// SetPC pokes the program counter, wrapped to 12 bits (supervisor DEPOSIT PC).
func (c *CPU) SetPC(pc uint16) { c.pc = pc % MemSize }

// Running reports the advisory run flag (§3).
func (c *CPU) Running() bool { return c.run }

// InstructionCount returns the number of successfully dispatched
// instructions, including HLT and invalid opcodes (§3).
func (c *CPU) InstructionCount() uint64 { return c.instructionCount }

// Throttle returns the current instructions-per-second cap (0 = disabled).
func (c *CPU) Throttle() uint64 { return c.ips }

// SetThrottle changes the instructions-per-second cap.
func (c *CPU) SetThrottle(ips uint64) { c.ips = ips }

// Trace reports whether tracing is enabled.
func (c *CPU) Trace() bool { return c.trace }

// SetTrace enables or disables tracing.
func (c *CPU) SetTrace(on bool) { c.trace = on }

// SetBreakpoint arms a breakpoint at addr.
func (c *CPU) SetBreakpoint(addr uint16) { c.breakpoints[addr%MemSize] = struct{}{} }

// ClearBreakpoint disarms a breakpoint at addr.
func (c *CPU) ClearBreakpoint(addr uint16) { delete(c.breakpoints, addr%MemSize) }

// Breakpoints returns the armed breakpoint addresses in ascending order.
func (c *CPU) Breakpoints() []uint16 { return sortedAddrs(c.breakpoints) }

// SetAddressCompareStop arms an address-compare stop at addr.
func (c *CPU) SetAddressCompareStop(addr uint16) { c.acstops[addr%MemSize] = struct{}{} }

// ClearAddressCompareStop disarms an address-compare stop at addr.
func (c *CPU) ClearAddressCompareStop(addr uint16) { delete(c.acstops, addr%MemSize) }

// AddressCompareStops returns the armed address-compare-stop addresses in
// ascending order.
func (c *CPU) AddressCompareStops() []uint16 { return sortedAddrs(c.acstops) }

// AttachTape attaches a paper-tape byte stream for RT to read.
func (c *CPU) AttachTape(src io.Reader) { c.tape = NewTapeReader(src) }

// DetachTape removes the attached tape, if any; a subsequent RT reports
// "No Tape in PTReader".
func (c *CPU) DetachTape() { c.tape = nil }

// AttachKeySource attaches the keyboard character source for TI.
func (c *CPU) AttachKeySource(ks KeySource) {
	if ks == nil {
		ks = noKeySource{}
	}
	c.keys = ks
}

func sortedAddrs(set map[uint16]struct{}) []uint16 {
	out := make([]uint16, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Step executes exactly one instruction. If the CPU is currently sitting
// on an armed breakpoint, that breakpoint is lifted for this one fetch and
// re-armed immediately afterward (§4.5), so Step always makes forward
// progress — this is how a supervisor gets past a breakpoint Go/Run just
// stopped at.
func (c *CPU) Step() StepResult {
	return c.runUntil(1, true)[0]
}

// StepN executes up to n instructions, stopping early if the run flag
// clears (HLT, breakpoint, fault) or a later breakpoint is reached. Like
// Step, the breakpoint at the starting PC (if any) is lifted for the first
// fetch only.
func (c *CPU) StepN(n int) []StepResult {
	if n <= 0 {
		return nil
	}
	return c.runUntil(n, true)
}

// Run executes instructions until the run flag clears. Unlike Step, it
// lifts no breakpoint: a breakpoint at the starting PC stops it before any
// fetch, the same as any other armed breakpoint it reaches.
func (c *CPU) Run() []StepResult {
	return c.runUntil(-1, false)
}

// runUntil is the shared engine behind Step, StepN and Run. When lift is
// true, a breakpoint at the starting PC is removed for the first fetch and
// re-armed as soon as that instruction has been dispatched.
func (c *CPU) runUntil(limit int, lift bool) []StepResult {
	c.run = true
	var results []StepResult

	liftAddr := c.pc
	lifted := false
	if _, armed := c.breakpoints[liftAddr]; armed && lift {
		delete(c.breakpoints, liftAddr)
		lifted = true
	}

	for limit < 0 || len(results) < limit {
		if _, armed := c.breakpoints[c.pc]; armed {
			c.run = false
			results = append(results, StepResult{
				PC:     c.pc,
				Effect: fmt.Sprintf("Breakpoint at %04o", c.pc),
				Halted: true,
			})
			break
		}

		res := c.fetchExecute()
		results = append(results, res)
		if lifted {
			c.breakpoints[liftAddr] = struct{}{}
			lifted = false
		}
		if !c.run {
			break
		}
	}

	return results
}

// fetchExecute performs one fetch/decode/dispatch cycle: throttle sleep,
// fetch (may trip an address-compare stop but still executes), PC
// increment, instruction count, decode, dispatch (§4.2 state machine).
func (c *CPU) fetchExecute() StepResult {
	if c.ips > 0 {
		time.Sleep(time.Second / time.Duration(c.ips))
	}

	pc := c.pc
	raw := c.mem.Read(pc).Pack()
	c.pc = (c.pc + 1) % MemSize
	c.instructionCount++

	inst := c.decoder.Decode(raw)
	effect := c.dispatch(inst, pc, raw)

	if len(c.acsReports) > 0 {
		parts := append(append([]string{}, c.acsReports...), effect)
		effect = strings.Join(parts, "; ")
		c.acsReports = c.acsReports[:0]
	}

	return StepResult{
		PC:          pc,
		Instruction: raw,
		Fetched:     true,
		Effect:      effect,
		Halted:      !c.run,
	}
}

// dispatch routes a decoded instruction to its handler (§4.2).
func (c *CPU) dispatch(inst insts.Instruction, pc uint16, raw uint32) string {
	switch inst.Op {
	case insts.OpHLT:
		return c.execHLT()
	case insts.OpAND:
		return c.execAND(inst)
	case insts.OpCLA:
		return c.execCLA(inst)
	case insts.OpADD:
		return c.execADD(inst)
	case insts.OpMLT:
		return c.execMLT(inst)
	case insts.OpDIV:
		return c.execDIV(inst)
	case insts.OpSTA:
		return c.execSTA(inst)
	case insts.OpSTB:
		return c.execSTB(inst)
	case insts.OpJMP:
		return c.execJMP(inst)
	case insts.OpBRM:
		return c.execBRM(inst)
	case insts.OpBRP:
		return c.execBRP(inst)
	case insts.OpBRZ:
		return c.execBRZ(inst)
	case insts.OpTA:
		return c.execTA(inst)
	case insts.OpRT:
		return c.execRT(inst)
	case insts.OpTI:
		return c.execTI(inst)
	default:
		c.run = false
		return fmt.Sprintf("Invalid or Unknown OPCODE %08o at %04o", raw, pc)
	}
}

// execHLT implements HLT (§4.2): clear the run flag and report the PC,
// which already points past the HLT word by the time this runs.
func (c *CPU) execHLT() string {
	c.run = false
	return fmt.Sprintf("HALTED at %04o", c.pc)
}

// Status renders a one-line machine summary in the original's format:
// "Digiac< PC: pppp->iiiiiiii A... B... Icnt: n IPS: ips bpt:... acs:...>"
// (see SPEC_FULL.md, "status rendering").
func (c *CPU) Status() string {
	instr := c.mem.Read(c.pc).Pack() & magMask
	var sb strings.Builder
	fmt.Fprintf(&sb, "Digiac< PC: %04o->%08o A: %s B: %s Icnt: %d IPS: %d",
		c.pc, instr, c.a, c.b, c.instructionCount, c.ips)
	if bpts := c.Breakpoints(); len(bpts) > 0 {
		sb.WriteString(" bpt")
		for _, b := range bpts {
			fmt.Fprintf(&sb, ":%04o", b)
		}
	}
	if acs := c.AddressCompareStops(); len(acs) > 0 {
		sb.WriteString(" acs")
		for _, a := range acs {
			fmt.Fprintf(&sb, ":%04o", a)
		}
	}
	sb.WriteString(">")
	return sb.String()
}

// FormatTrace renders one StepResult the way the original's trace option
// (TRACE 1) prints each executed instruction:
// "{instruction_count:5d}  {pc:04o}: {inst:08o} .. {effect}".
func (c *CPU) FormatTrace(res StepResult) string {
	if !res.Fetched {
		return fmt.Sprintf("%5d  %04o: -------- .. %s", c.instructionCount, res.PC, res.Effect)
	}
	return fmt.Sprintf("%5d  %04o: %08o .. %s", c.instructionCount, res.PC, res.Instruction&magMask, res.Effect)
}

// ExamineMemory renders one memory word the way EXAMINE does: octal value
// and sign plus its character interpretation (SPEC_FULL.md supplemented
// feature 2).
func (c *CPU) ExamineMemory(addr uint16) string {
	w := c.mem.Read(addr)
	return fmt.Sprintf("%04o: %s %s", addr%MemSize, w, formatChars(w.Mag))
}
