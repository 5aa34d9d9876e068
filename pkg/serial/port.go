// Package serial opens serial ports by device name with a read timeout.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the MaxSonar TTL/RS232 output rate.
const DefaultBaud = 9600

const (
	// tarm/serial maps the read timeout onto VTIME, in deciseconds.
	minVTime = 100 * time.Millisecond
	maxVTime = 255 * minVTime

	// hangupReads is the number of back-to-back empty reads returning
	// well before the read timeout which mark the device as gone.
	hangupReads = 3
)

// ErrHangup reports a device returning end of file without waiting for the
// read timeout, e.g. an unplugged USB adapter or a pty with its master closed.
var ErrHangup = errors.New("device hung up")

// Opener opens tarm/serial ports with fixed line settings (8N1).
type Opener struct {
	Baud int
}

// NewOpener creates an Opener, baud <= 0 selects DefaultBaud.
func NewOpener(baud int) *Opener {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &Opener{Baud: baud}
}

// OpenPort opens the named device. readTimeout bounds every Read;
// an expired timeout is reported by tarm/serial as a zero-byte read.
func (o *Opener) OpenPort(name string, readTimeout time.Duration) (io.ReadCloser, error) {
	if name == "" {
		return nil, fmt.Errorf("serial: device name required")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        o.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	return NewPort(name, port, readTimeout), nil
}

// Port tells a hung up device apart from an expired read timeout, both
// being zero-byte reads from tarm/serial.
type Port struct {
	Name string

	port    io.ReadCloser
	instant time.Duration
	empties int
}

// NewPort wraps a port opened with readTimeout.
func NewPort(name string, port io.ReadCloser, readTimeout time.Duration) *Port {
	p := &Port{Name: name, port: port}
	if readTimeout > 0 {
		p.instant = effectiveTimeout(readTimeout) / 2
	}
	return p
}

func effectiveTimeout(d time.Duration) time.Duration {
	d = d.Truncate(minVTime)
	if d < minVTime {
		return minVTime
	}
	if d > maxVTime {
		return maxVTime
	}
	return d
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	start := time.Now()
	n, err := p.port.Read(b)
	if n > 0 || len(b) == 0 || (err != nil && err != io.EOF) {
		p.empties = 0
		return n, err
	}
	// without a read timeout a blocking read only returns empty on hangup.
	if p.instant > 0 && time.Since(start) >= p.instant {
		p.empties = 0
		return n, err
	}
	if p.empties++; p.empties >= hangupReads {
		return 0, fmt.Errorf("serial: %s: %w", p.Name, ErrHangup)
	}
	return n, err
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}
