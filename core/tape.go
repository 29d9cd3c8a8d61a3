package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/digiac3080/emulator/insts"
)

// TapeInvalidByteError reports a paper-tape byte outside the valid range
// {0x00, 0x01-0x3F, 0x40} (§4.3, §7 "Tape byte invalid").
type TapeInvalidByteError struct {
	Offset int64
	Byte   byte
}

func (e *TapeInvalidByteError) Error() string {
	return fmt.Sprintf("Unexpected PT character = 0x%02X at offset %d", e.Byte, e.Offset)
}

// TapeReader implements the paper-tape byte protocol (§4.3) over an
// attached byte stream. It only reads the stream: neither TapeReader nor
// the CPU closes it, not even at end of tape, so whoever attached the
// stream closes it.
type TapeReader struct {
	src    io.Reader
	offset int64
}

// NewTapeReader attaches a byte stream as the paper-tape reader.
func NewTapeReader(src io.Reader) *TapeReader {
	return &TapeReader{src: src}
}

// readByte reads one raw tape byte, tracking the stream offset used in
// diagnostics.
func (t *TapeReader) readByte() (byte, error) {
	var buf [1]byte
	n, err := t.src.Read(buf[:])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	t.offset++
	return buf[0], nil
}

// ReadWord reads one 25-bit word (sign byte + four digit bytes) from the
// tape per §4.3: blank leader (0x00) is skipped before the sign byte; the
// first non-blank byte is the sign byte, reduced modulo 64 the same way a
// digit byte is (0x40 reduces to 0 and marks the word positive, any other
// non-blank value marks it negative); the next four non-blank bytes are
// digit bytes, each taken modulo 64 (0x40 is the literal digit zero), and
// the four digits pack into a 24-bit magnitude most-significant digit
// first. A 0x00 byte interleaved between the sign byte and the digits, or
// between digits, is additional blank leader and is skipped rather than
// counted as a digit, the same tolerance the original reference reader
// gives the leader before the sign byte.
//
// End of stream before the sign byte is a clean stop: io.EOF is returned
// with no other error. End of stream after the sign byte (mid-word) is
// also a clean stop (the original reference implementation does not
// distinguish the two; see DESIGN.md) and also returns io.EOF. A byte
// greater than 64 anywhere in the word is reported as *TapeInvalidByteError
// and the transfer must stop.
func (t *TapeReader) ReadWord() (Word, error) {
	// Skip blank leader and locate the sign byte.
	var signByte byte
	for {
		b, err := t.readByte()
		if err != nil {
			return Word{}, io.EOF
		}
		if b > 64 {
			return Word{}, &TapeInvalidByteError{Offset: t.offset, Byte: b}
		}
		if b != 0 {
			signByte = b
			break
		}
	}

	// The sign byte follows the same mod-64 rule as digit bytes: 0x40
	// reduces to 0 (positive), any other non-blank value is nonzero
	// (negative).
	sign := uint8(0)
	if signByte%64 != 0 {
		sign = 1
	}

	var mag uint32
	for i := 0; i < 4; {
		b, err := t.readByte()
		if err != nil {
			return Word{}, io.EOF
		}
		if b > 64 {
			return Word{}, &TapeInvalidByteError{Offset: t.offset, Byte: b}
		}
		if b == 0 {
			// Blank leader can interleave between the sign byte and the
			// digits too; skip it rather than counting it as a digit.
			continue
		}
		digit := uint32(b) % 64
		mag = mag*64 + digit
		i++
	}

	return Word{Sign: sign, Mag: mag & magMask}, nil
}

// execRT implements opcode 60, Read Tape (§4.2): read (64-count) words
// from the attached tape into memory starting at address, advancing (mod
// 4096) after each. End of stream stops the transfer cleanly with no
// error flag; an invalid byte stops the CPU and reports the failure;
// no attached tape stops the CPU immediately.
func (c *CPU) execRT(inst insts.Instruction) string {
	if c.tape == nil {
		c.run = false
		return "No Tape in PTReader"
	}
	words := 0100 - int(inst.Count)
	addr := inst.Addr
	for i := 0; i < words; i++ {
		w, err := c.tape.ReadWord()
		if err != nil {
			var invalid *TapeInvalidByteError
			if errors.As(err, &invalid) {
				c.run = false
				return invalid.Error()
			}
			return fmt.Sprintf("RT     -> %04o (%d/%d words, EOF)", addr, i, words)
		}
		c.mem.Write(addr, w)
		addr = (addr + 1) % MemSize
	}
	return fmt.Sprintf("RT     -> %04o (%d words)", addr, words)
}
