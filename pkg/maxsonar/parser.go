package maxsonar

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"
)

const (
	// FrameStart marks the beginning of a frame.
	FrameStart byte = 'R'
	// FrameEnd terminates a frame.
	FrameEnd byte = '\r'
	// PayloadSize is the size of a frame without terminator: marker + 4 digits.
	PayloadSize = 5
	// ScratchSize is the size of each read from the serial port.
	ScratchSize = PayloadSize + 1
)

// Distance is a range in the sensor's native unit, 0 to 9999.
type Distance uint16

// Parser assembles a frame from bytes delivered in arbitrary chunks.
// The zero value is ready to use.
type Parser struct {
	buf [PayloadSize]byte
	n   int
}

// Len returns the number of accumulated bytes of the in-progress frame.
func (p *Parser) Len() int {
	return p.n
}

// Reset discards the in-progress frame.
func (p *Parser) Reset() {
	p.n = 0
}

// Feed consumes the bytes of one read. It returns done when a frame is
// complete, or a non-nil error when the completed frame is invalid.
// In both cases the parser is reset and the remaining bytes are dropped.
func (p *Parser) Feed(b []byte) (d Distance, done bool, err error) {
	if p.n == 0 {
		pos := bytes.IndexByte(b, FrameStart)
		if pos < 0 {
			return
		}
		b = b[pos:]
	}
	terminated := false
	if pos := bytes.IndexByte(b, FrameEnd); pos >= 0 {
		b, terminated = b[:pos], true
	}
	if p.n+len(b) > PayloadSize {
		payload := append(p.buf[:p.n:p.n], b...)
		p.Reset()
		return 0, false, fmt.Errorf("%w: %q exceeds %d bytes", ErrMalformedFrame, payload, PayloadSize)
	}
	p.n += copy(p.buf[p.n:], b)
	if p.n == PayloadSize {
		d, err = p.decode()
		p.Reset()
		return d, err == nil, err
	}
	if terminated && p.n > 0 {
		payload := append([]byte(nil), p.buf[:p.n]...)
		p.Reset()
		return 0, false, fmt.Errorf("%w: %q truncated", ErrMalformedFrame, payload)
	}
	return
}

func (p *Parser) decode() (Distance, error) {
	payload := p.buf[:p.n]
	if !utf8.Valid(payload) {
		return 0, fmt.Errorf("%w: % x", ErrInvalidEncoding, payload)
	}
	digits := string(payload[1:])
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("%w %q", ErrInvalidNumber, digits)
		}
	}
	val, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidNumber, digits, err)
	}
	return Distance(val), nil
}
