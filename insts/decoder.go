// Package insts provides Digiac-3080 instruction decoding.
//
// A Digiac-3080 instruction word packs three fields into the low 24 bits
// of a memory word: a 6-bit opcode, a 6-bit count (shift amount for
// arithmetic/logic instructions, repeat count for I/O instructions) and a
// 12-bit address. The high byte of the containing memory word (its sign)
// plays no part in instruction decode.
//
// Usage:
//
//	dec := insts.NewDecoder()
//	inst := dec.Decode(word) // word is the raw 32-bit memory word at PC
//	fmt.Printf("op=%02o count=%02o addr=%04o\n", inst.Opcode, inst.Count, inst.Addr)
package insts

// Op identifies the semantic family an opcode belongs to. Four consecutive
// opcode values (opcode&3 == 0..3) share one Op and differ only in the sign
// modifier applied by the family's handler.
type Op uint8

// Instruction families, grouped the way the Digiac-3080 groups its opcodes.
const (
	OpUnknown Op = iota
	OpHLT
	OpAND
	OpCLA
	OpADD
	OpMLT
	OpDIV
	OpSTA
	OpSTB
	OpJMP
	OpBRM // BR- : branch if A negative and nonzero
	OpBRP // BR+ : branch if A positive and nonzero
	OpBRZ // BRZ : branch if A magnitude is zero
	OpTA  // Type Alpha
	OpRT  // Read Tape
	OpTI  // Type In
)

// Modifier is the sign-modifier selected by the low two bits of an opcode.
type Modifier uint8

// The four sign modifiers (§4.1 of the spec).
const (
	ModPass   Modifier = 0 // pass sign through
	ModNegate Modifier = 1 // flip sign
	ModAbs    Modifier = 2 // force sign = 0
	ModMinus  Modifier = 3 // force sign = 1
)

// Instruction is a decoded Digiac-3080 instruction word.
type Instruction struct {
	Op     Op       // semantic family
	Mod    Modifier // sign modifier (opcode & 3)
	Opcode uint8    // raw 6-bit opcode, for diagnostics
	Count  uint8    // raw 6-bit count field
	Addr   uint16   // 12-bit address field
}

// opFamilies maps the high 4 bits of the opcode (opcode >> 2) to the
// instruction family shared by its four sign-modifier variants. Families
// that occupy only a single opcode value (HLT, JMP, branches, TA, RT, TI)
// are looked up directly on the full 6-bit opcode instead; see Decode.
var opFamilies = map[uint8]Op{
	0o01: OpAND,
	0o02: OpCLA,
	0o03: OpADD,
	0o04: OpMLT,
	0o05: OpDIV,
	0o06: OpSTA,
	0o07: OpSTB,
}

// singleOpcodes maps opcodes that do not participate in the four-variant
// sign-modifier grouping to their family.
var singleOpcodes = map[uint8]Op{
	0o00: OpHLT,
	0o44: OpJMP,
	0o45: OpBRM,
	0o46: OpBRP,
	0o47: OpBRZ,
	0o54: OpTA,
	0o60: OpRT,
	0o63: OpTI,
}

// Decoder splits Digiac-3080 memory words into instructions. It holds no
// state and is safe for concurrent use, but the machine itself never calls
// it from more than one goroutine (§5).
type Decoder struct{}

// NewDecoder creates a Digiac-3080 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode splits a 32-bit memory word into opcode(6)/count(6)/address(12)
// and resolves the opcode to an instruction family. The high byte (sign)
// of word is ignored, per spec.
func (d *Decoder) Decode(word uint32) Instruction {
	w := word & 0x00FFFFFF // strip the sign byte; decode never sees it

	opcode := uint8((w >> 18) & 0o77)
	count := uint8((w >> 12) & 0o77)
	addr := uint16(w & 0o7777)

	inst := Instruction{
		Opcode: opcode,
		Count:  count,
		Addr:   addr,
		Mod:    Modifier(opcode & 3),
	}

	if op, ok := singleOpcodes[opcode]; ok {
		inst.Op = op
		return inst
	}
	if op, ok := opFamilies[opcode>>2]; ok {
		inst.Op = op
		return inst
	}

	inst.Op = OpUnknown
	return inst
}
