// Package gpio abstracts the digital output line driving a sensor trigger.
package gpio

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Pin is a digital output pin. Every step may fail.
type Pin interface {
	io.Closer
	// Number returns the platform pin number (BCM numbering on a Raspberry Pi).
	Number() int
	// Configure exports the pin if needed, sets it as output and drives it
	// to the idle (deasserted) level. It must be safe to call again.
	Configure() error
	// Assert drives the pin high.
	Assert() error
	// Deassert drives the pin low.
	Deassert() error
}

// OpenFunc opens a pin by number with a specific backend.
type OpenFunc func(number int) (Pin, error)

// ErrUnknownBackend indicates no backend is registered with the name.
var ErrUnknownBackend = errors.New("unknown GPIO backend")

var (
	backends     = make(map[string]OpenFunc)
	backendsLock sync.RWMutex
)

// Register makes a backend available by name.
// It is intended to be called from init funcs of backend packages.
func Register(name string, fn OpenFunc) {
	backendsLock.Lock()
	defer backendsLock.Unlock()
	if _, exists := backends[name]; exists {
		panic("gpio: backend " + name + " registered twice")
	}
	backends[name] = fn
}

// Backends lists names of registered backends.
func Backends() []string {
	backendsLock.RLock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	backendsLock.RUnlock()
	sort.Strings(names)
	return names
}

// Open opens a pin using the named backend.
func Open(backend string, number int) (Pin, error) {
	backendsLock.RLock()
	fn := backends[backend]
	backendsLock.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, backend)
	}
	return fn(number)
}
