package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDeposit parses a supervisor DEPOSIT literal (§6.4): an optionally
// signed octal integer, such as "+00000003", "-00000001" or a bare "17".
// The value is parsed as an ordinary signed integer and then converted to
// sign-magnitude — the source's "interpreted as two's-complement" note
// is just this: the literal is not itself sign-magnitude notation, it is
// a plain negative number that must be converted before storage. A
// magnitude that does not fit in 24 bits is rejected rather than silently
// truncated, matching the original's `assert -0x1000000 < val < 0x1000000`.
func ParseDeposit(s string) (Word, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Word{}, fmt.Errorf("empty deposit literal")
	}
	v, err := strconv.ParseInt(s, 8, 64)
	if err != nil {
		return Word{}, fmt.Errorf("bad octal literal %q: %w", s, err)
	}
	if v <= -0x1000000 || v >= 0x1000000 {
		return Word{}, fmt.Errorf("deposit literal %q out of range (24-bit magnitude)", s)
	}
	return fromSigned(v), nil
}
