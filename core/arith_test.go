package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/digiac3080/emulator/core"
)

var _ = Describe("arithmetic and logic instructions", func() {
	var (
		mem *core.Memory
		cpu *core.CPU
	)

	BeforeEach(func() {
		mem = core.NewMemory()
		cpu = core.NewCPU(core.WithMemory(mem), core.WithThrottle(0))
	})

	Describe("AND", func() {
		It("clears the sign when the argument is positive, regardless of A's sign", func() {
			cpu.SetA(core.Word{Sign: 1, Mag: 0o17})
			mem.Write(0o10, core.Word{Sign: 0, Mag: 0o05})
			mem.Write(0, core.Word{Mag: encodeInstr(0o04, 0, 0o10)})

			cpu.Step()

			Expect(cpu.A().Sign).To(Equal(uint8(0)))
			Expect(cpu.A().Mag).To(Equal(uint32(0o05)))
		})

		It("follows A's sign when the argument is negative", func() {
			cpu.SetA(core.Word{Sign: 1, Mag: 0o17})
			mem.Write(0o10, core.Word{Sign: 1, Mag: 0o05})
			mem.Write(0, core.Word{Mag: encodeInstr(0o04, 0, 0o10)})

			cpu.Step()

			Expect(cpu.A().Sign).To(Equal(uint8(1)))
		})
	})

	DescribeTable("sign modifiers hold regardless of argument sign",
		func(opcode uint8, argSign uint8, wantSign uint8) {
			mem.Write(0o20, core.Word{Sign: argSign, Mag: 1})
			mem.Write(0, core.Word{Mag: encodeInstr(opcode, 0, 0o20)})
			cpu.Step()
			Expect(cpu.A().Sign).To(Equal(wantSign))
		},
		Entry("CLA+abs forces positive", uint8(0o12), uint8(1), uint8(0)),
		Entry("CLA+abs forces positive (already positive)", uint8(0o12), uint8(0), uint8(0)),
		Entry("CLA+minus-abs forces negative", uint8(0o13), uint8(0), uint8(1)),
		Entry("CLA+minus-abs forces negative (already negative)", uint8(0o13), uint8(1), uint8(1)),
	)

	Describe("STA/CLA round trip", func() {
		It("leaves A unchanged after STA k; CLA k with no modifier", func() {
			cpu.SetA(core.Word{Sign: 1, Mag: 0})
			mem.Write(0, core.Word{Mag: encodeInstr(0o30, 0, 0o30)}) // STA 0o30
			mem.Write(1, core.Word{Mag: encodeInstr(0o10, 0, 0o30)}) // CLA 0o30

			cpu.StepN(2)

			Expect(cpu.A()).To(Equal(core.Word{Sign: 1, Mag: 0}))
		})
	})
})
