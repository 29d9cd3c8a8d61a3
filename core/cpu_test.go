package core_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/digiac3080/emulator/core"
)

var _ = Describe("CPU", func() {
	var (
		mem *core.Memory
		cpu *core.CPU
	)

	BeforeEach(func() {
		mem = core.NewMemory()
		cpu = core.NewCPU(core.WithMemory(mem), core.WithThrottle(0))
	})

	It("defaults to a 60 ips throttle", func() {
		fresh := core.NewCPU()
		Expect(fresh.Throttle()).To(Equal(uint64(60)))
	})

	Describe("S1: add", func() {
		It("computes A = 3 + 4", func() {
			mem.Write(0, core.Word{Mag: encodeInstr(0o10, 0, 0o10)}) // CLA 10
			mem.Write(1, core.Word{Mag: encodeInstr(0o14, 0, 0o11)}) // ADD 11
			mem.Write(2, core.Word{Mag: encodeInstr(0o00, 0, 0)})    // HLT
			mem.Write(0o10, core.Word{Sign: 0, Mag: 3})
			mem.Write(0o11, core.Word{Sign: 0, Mag: 4})

			cpu.StepN(3)

			Expect(cpu.A()).To(Equal(core.Word{Sign: 0, Mag: 7}))
			Expect(cpu.PC()).To(Equal(uint16(3)))
			Expect(cpu.Running()).To(BeFalse())
		})
	})

	Describe("S2: subtract via negate modifier", func() {
		It("computes A = 3 + (-4) = -1", func() {
			mem.Write(0, core.Word{Mag: encodeInstr(0o10, 0, 0o10)}) // CLA 10
			mem.Write(1, core.Word{Mag: encodeInstr(0o15, 0, 0o11)}) // ADD+negate 11
			mem.Write(2, core.Word{Mag: encodeInstr(0o00, 0, 0)})    // HLT
			mem.Write(0o10, core.Word{Sign: 0, Mag: 3})
			mem.Write(0o11, core.Word{Sign: 0, Mag: 4})

			cpu.StepN(3)

			Expect(cpu.A()).To(Equal(core.Word{Sign: 1, Mag: 1}))
		})
	})

	Describe("S3: multiply signs", func() {
		It("computes A=-2 * Mem=-3 = +6 across A,B", func() {
			cpu.SetA(core.Word{Sign: 1, Mag: 2})
			mem.Write(0o100, core.Word{Sign: 1, Mag: 3})
			mem.Write(0, core.Word{Mag: encodeInstr(0o20, 0, 0o100)}) // MLT

			cpu.Step()

			Expect(cpu.A()).To(Equal(core.Word{Sign: 0, Mag: 0}))
			Expect(cpu.B()).To(Equal(core.Word{Sign: 0, Mag: 6}))
		})
	})

	Describe("S4: divide by zero", func() {
		It("halts, leaves A and B unchanged, and reports the fault", func() {
			cpu.SetA(core.Word{Sign: 0, Mag: 99})
			cpu.SetB(core.Word{Sign: 0, Mag: 42})
			mem.Write(0o200, core.Word{Sign: 0, Mag: 0})
			mem.Write(0, core.Word{Mag: encodeInstr(0o24, 0, 0o200)}) // DIV

			results := cpu.StepN(1)

			Expect(cpu.Running()).To(BeFalse())
			Expect(cpu.A()).To(Equal(core.Word{Sign: 0, Mag: 99}))
			Expect(cpu.B()).To(Equal(core.Word{Sign: 0, Mag: 42}))
			Expect(results[0].Effect).To(ContainSubstring("Divide by Zero"))
		})
	})

	Describe("S5: shift modifier round trip", func() {
		It("shifts left then recovers with a matching right shift", func() {
			mem.Write(0o300, core.Word{Sign: 0, Mag: 1})
			mem.Write(0, core.Word{Mag: encodeInstr(0o10, 0o03, 0o300)}) // CLA, shift left 3

			cpu.Step()
			Expect(cpu.A().Mag).To(Equal(uint32(0o10)))

			mem.Write(0o301, cpu.A())
			mem.Write(1, core.Word{Mag: encodeInstr(0o10, 0o75, 0o301)}) // CLA, shift right 3
			cpu.SetPC(1)
			cpu.Step()

			Expect(cpu.A().Mag).To(Equal(uint32(0o01)))
		})
	})

	Describe("S6: TA output", func() {
		It("prints HELLO WORLD with trailing blanks suppressed", func() {
			var buf bytes.Buffer
			cpu = core.NewCPU(core.WithMemory(mem), core.WithStdout(&buf), core.WithThrottle(0))

			h, e, l, o, sp, w, r, d := uint8(0o30), uint8(0o25), uint8(0o34), uint8(0o42),
				uint8(0o20), uint8(0o52), uint8(0o45), uint8(0o24)
			mem.Write(0o10, core.Word{Mag: packChars([4]uint8{h, e, l, l})})
			mem.Write(0o11, core.Word{Mag: packChars([4]uint8{o, sp, w, o})})
			mem.Write(0o12, core.Word{Mag: packChars([4]uint8{r, l, d, 0o66})})
			mem.Write(0o13, core.Word{Mag: packChars([4]uint8{0o66, 0o66, 0o66, 0o66})})

			// count = 0o74 => (0o100-0o74) = 4 words = 16 characters
			mem.Write(0, core.Word{Mag: encodeInstr(0o54, 0o74, 0o10)})

			cpu.Step()

			Expect(buf.String()).To(Equal("HELLO WORLD"))
		})
	})

	Describe("S7: breakpoint", func() {
		It("halts immediately on Go and steps past it when asked to Step", func() {
			mem.Write(5, core.Word{Mag: encodeInstr(0o00, 0, 0)}) // HLT
			cpu.SetPC(5)
			cpu.SetBreakpoint(5)

			before := cpu.InstructionCount()
			results := cpu.Run()
			Expect(results).To(HaveLen(1))
			Expect(results[0].Effect).To(Equal("Breakpoint at 0005"))
			Expect(cpu.InstructionCount()).To(Equal(before))
			Expect(cpu.Running()).To(BeFalse())

			step := cpu.Step()
			Expect(step.Fetched).To(BeTrue())
			Expect(cpu.InstructionCount()).To(Equal(before + 1))
			Expect(cpu.Breakpoints()).To(ContainElement(uint16(5)))
		})
	})

	Describe("address-compare stops", func() {
		It("halts on a tapped read but still completes the access", func() {
			mem.Write(0o400, core.Word{Sign: 0, Mag: 9})
			mem.Write(0, core.Word{Mag: encodeInstr(0o10, 0, 0o400)}) // CLA 0o400
			cpu.SetAddressCompareStop(0o400)

			step := cpu.Step()

			Expect(cpu.Running()).To(BeFalse())
			Expect(step.Effect).To(ContainSubstring("Read Memory address Compare Stop @ 0400"))
			Expect(cpu.A()).To(Equal(core.Word{Sign: 0, Mag: 9}))
		})
	})

	Describe("invalid opcode", func() {
		It("halts and reports the opcode and PC", func() {
			mem.Write(0, core.Word{Mag: encodeInstr(0o50, 0, 0)}) // Type Octal: unimplemented
			step := cpu.Step()
			Expect(cpu.Running()).To(BeFalse())
			Expect(step.Effect).To(ContainSubstring("Invalid or Unknown OPCODE"))
		})
	})

	Describe("no tape attached", func() {
		It("halts RT with a diagnostic", func() {
			mem.Write(0, core.Word{Mag: encodeInstr(0o60, 0, 0o10)}) // RT
			step := cpu.Step()
			Expect(cpu.Running()).To(BeFalse())
			Expect(step.Effect).To(Equal("No Tape in PTReader"))
		})
	})
})
