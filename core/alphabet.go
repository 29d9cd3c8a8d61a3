package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/digiac3080/emulator/insts"
)

// blankCode is the output character code Type Alpha suppresses instead of
// emitting (§4.2, §6.3): index 54 decimal, 0o66 octal.
const blankCode = 0o66

// outputAlphabet is the 64-entry Digiac output glyph table (§6.3), indexed
// by 6-bit character code, four rows of sixteen as laid out in the spec.
// A rune table (not a plain string) because three glyphs (±, °, and the
// null slot) are not single-byte ASCII.
var outputAlphabet = [64]rune{
	// row 0
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '-', ';', '/', '!', '\'', '=',
	// row 1
	' ', 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', ',', '\n',
	// row 2
	'\t', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z', '.', 0,
	// row 3 (index 54 = 0o66 is the blank, a literal space per spec.md §6.3/§6.4)
	')', '±', '@', '#', '$', '%', ' ', '&', '*', '(', '_', ':', '?', '°', '"', '+',
}

// outputChar returns the printable rune for a 6-bit output code.
func outputChar(code uint8) rune {
	return outputAlphabet[code&0o77]
}

// inputAlphabet is outputAlphabet's inverse: it maps an upper-cased input
// rune back to its Digiac code, built once at init the way the original's
// hand-written _tichars table mirrors _ta_char. The null slot (code 0o57,
// row 2 column 15) has no printable glyph and is excluded, since a keyboard
// can never usefully send it. Two codes render as a literal space (0o20
// and 0o66, the suppressed blank); the first one wins, matching the
// original's explicit _tichars[" "] == 0o20 rather than letting the later,
// higher code in iteration order shadow it.
var inputAlphabet = buildInputAlphabet()

func buildInputAlphabet() map[rune]uint8 {
	m := make(map[rune]uint8, 64)
	for code, r := range outputAlphabet {
		if r == 0 {
			continue
		}
		if _, taken := m[r]; taken {
			continue
		}
		m[r] = uint8(code)
	}
	return m
}

// lookupInputChar returns the Digiac code for an input rune, folding
// lower-case ASCII letters to upper case first (§4.4). ok is false for any
// rune with no mapping.
func lookupInputChar(r rune) (uint8, bool) {
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	code, ok := inputAlphabet[r]
	return code, ok
}

// formatChars renders the top 4 sextets of a 24-bit magnitude through the
// output alphabet, the way the original's EXAMINE-time `_chars` helper
// shows a word's character interpretation next to its octal value.
// Non-printing codes (the null slot, tab, newline) render as '.' so the
// examine/status line stays one printable line.
func formatChars(mag uint32) string {
	var sb strings.Builder
	w := mag << 8 // left-align the 24-bit magnitude in a 32-bit word
	for i := 0; i < 4; i++ {
		code := uint8((w >> 26) & 0o77)
		r := outputChar(code)
		if r == '\n' || r == '\t' || r == 0 {
			r = '.'
		}
		sb.WriteRune(r)
		w <<= 6
	}
	return sb.String()
}

// execTA implements opcode 54, Type Alpha (§4.2): emit (64-count)*4
// characters read from memory starting at address, four per word,
// most-significant 6 bits first. Code 0o66 (blank) emits nothing; address
// advances (mod 4096) after each word is consumed.
func (c *CPU) execTA(inst insts.Instruction) string {
	words := 0100 - int(inst.Count)
	addr := inst.Addr
	var sb strings.Builder
	for i := 0; i < words; i++ {
		w := c.mem.Read(addr)
		for shift := 18; shift >= 0; shift -= 6 {
			code := uint8((w.Mag >> uint(shift)) & 0o77)
			if code != blankCode {
				sb.WriteRune(outputChar(code))
			}
		}
		addr = (addr + 1) % MemSize
	}
	fmt.Fprint(c.stdout, sb.String())
	return fmt.Sprintf("TA     -> %04o (%d words)", addr, words)
}

// execTI implements opcode 63, Type In (§4.2, §4.4): read (64-count)*4
// characters from the keyboard, pack them four per word most-significant
// first, and store into memory starting at address. Mapped characters are
// echoed; unmapped characters ring the bell and are not counted towards
// the pack. Control-C aborts and is surfaced as a user interrupt (§5, §7).
func (c *CPU) execTI(inst insts.Instruction) string {
	words := 0100 - int(inst.Count)
	addr := inst.Addr
	for i := 0; i < words; i++ {
		var mag uint32
		for slot := 0; slot < 4; slot++ {
			code, stopped, report := c.readTIChar()
			if stopped {
				return report
			}
			mag = (mag<<6 | uint32(code)) & magMask
		}
		c.mem.Write(addr, Word{Mag: mag})
		addr = (addr + 1) % MemSize
	}
	return fmt.Sprintf("TI     -> %04o (%d words)", addr, words)
}

// readTIChar blocks for one keyboard character already folded/mapped to a
// Digiac code, ringing the bell and retrying on unmapped input. It reports
// stop=true on Control-C or end of input, clearing the run flag.
func (c *CPU) readTIChar() (code uint8, stopped bool, report string) {
	for {
		r, err := c.keys.ReadKey()
		switch {
		case errors.Is(err, ErrInterrupted) || r == 3:
			c.run = false
			return 0, true, "Control-C"
		case err != nil:
			c.run = false
			return 0, true, "TI stopped: " + err.Error()
		}
		code, ok := lookupInputChar(r)
		if !ok {
			fmt.Fprint(c.stdout, "\a")
			continue
		}
		fmt.Fprintf(c.stdout, "%c", outputChar(code))
		return code, false, ""
	}
}
