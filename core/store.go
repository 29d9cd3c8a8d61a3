package core

import (
	"fmt"

	"github.com/digiac3080/emulator/insts"
)

// execSTA implements opcodes 30-33: store A into Memory[address], with the
// §4.1 shift-and-sign modifiers applied to A before the store.
func (c *CPU) execSTA(inst insts.Instruction) string {
	w := modify(inst.Mod, inst.Count, c.a)
	c.mem.Write(inst.Addr, w)
	return fmt.Sprintf("Mem[%04o] <- %s", inst.Addr, w)
}

// execSTB implements opcodes 34-37: store B into Memory[address], with the
// §4.1 shift-and-sign modifiers applied to B before the store.
func (c *CPU) execSTB(inst insts.Instruction) string {
	w := modify(inst.Mod, inst.Count, c.b)
	c.mem.Write(inst.Addr, w)
	return fmt.Sprintf("Mem[%04o] <- %s", inst.Addr, w)
}
