package core

import (
	"fmt"

	"github.com/digiac3080/emulator/insts"
)

// execJMP implements opcode 44: unconditional jump.
func (c *CPU) execJMP(inst insts.Instruction) string {
	c.pc = inst.Addr % MemSize
	return fmt.Sprintf("PC     <- %04o", c.pc)
}

// execBRM implements opcode 45 (BR-): jump iff A is negative and nonzero.
func (c *CPU) execBRM(inst insts.Instruction) string {
	if c.a.Sign&1 != 0 && !c.a.IsZero() {
		c.pc = inst.Addr % MemSize
		return fmt.Sprintf("PC     <- %04o", c.pc)
	}
	return "no branch"
}

// execBRP implements opcode 46 (BR+): jump iff A is positive and nonzero.
func (c *CPU) execBRP(inst insts.Instruction) string {
	if c.a.Sign&1 == 0 && !c.a.IsZero() {
		c.pc = inst.Addr % MemSize
		return fmt.Sprintf("PC     <- %04o", c.pc)
	}
	return "no branch"
}

// execBRZ implements opcode 47 (BRZ): jump iff A's magnitude is zero,
// regardless of sign.
func (c *CPU) execBRZ(inst insts.Instruction) string {
	if c.a.IsZero() {
		c.pc = inst.Addr % MemSize
		return fmt.Sprintf("PC     <- %04o", c.pc)
	}
	return "no branch"
}
