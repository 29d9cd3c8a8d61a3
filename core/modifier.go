package core

import "github.com/digiac3080/emulator/insts"

// shift applies the bidirectional shift selected by a 6-bit count field to
// a 24-bit magnitude (§4.1). If bit 5 of count is set (count >= 0o40), the
// magnitude is shifted right by (0o100 - count); otherwise it is shifted
// left by count. The result is masked to 24 bits either way — bits shifted
// out of the field are lost. count == 0 is the identity shift.
func shift(count uint8, mag uint32) uint32 {
	if count&0o40 != 0 {
		return (mag & magMask) >> (0o100 - count)
	}
	return (mag << count) & magMask
}

// applySign applies the sign modifier selected by the low two bits of an
// opcode to an incoming sign bit (§4.1).
func applySign(mod insts.Modifier, sign uint8) uint8 {
	sign &= 1
	switch mod {
	case insts.ModNegate:
		return 1 - sign
	case insts.ModAbs:
		return 0
	case insts.ModMinus:
		return 1
	default: // insts.ModPass
		return sign
	}
}

// modify applies both the shift and the sign modifier to a Word, the
// combined operation shared by arithmetic/logic argument fetch and by
// STA/STB's register store (§4.1).
func modify(mod insts.Modifier, count uint8, w Word) Word {
	return Word{
		Sign: applySign(mod, w.Sign),
		Mag:  shift(count, w.Mag),
	}
}
