// Package rpio drives a trigger pin by writing the BCM283x GPIO registers
// directly through /dev/gpiomem.
package rpio

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	gorpio "github.com/stianeikeland/go-rpio"

	"github.com/robotalks/maxsonar.go/pkg/gpio"
)

// BackendName is the name registered with gpio.Register.
const BackendName = "rpio"

func init() {
	gpio.Register(BackendName, func(number int) (gpio.Pin, error) {
		return New(number)
	})
}

// The register mapping is process-wide, shared by all pins.
var (
	memLock sync.Mutex
	memRefs int
)

func acquire() error {
	memLock.Lock()
	defer memLock.Unlock()
	if memRefs == 0 {
		if err := gorpio.Open(); err != nil {
			return err
		}
	}
	memRefs++
	return nil
}

func release() error {
	memLock.Lock()
	defer memLock.Unlock()
	if memRefs == 0 {
		return nil
	}
	if memRefs--; memRefs == 0 {
		return gorpio.Close()
	}
	return nil
}

// Pin is a register-level output pin.
type Pin struct {
	pin    gorpio.Pin
	number int
	opened bool
}

// New creates a Pin. Registers are mapped on Configure.
func New(number int) (*Pin, error) {
	if number < 0 || number > 53 {
		return nil, fmt.Errorf("rpio: invalid BCM pin %d", number)
	}
	return &Pin{pin: gorpio.Pin(number), number: number}, nil
}

// Number implements gpio.Pin.
func (p *Pin) Number() int {
	return p.number
}

// Configure implements gpio.Pin.
func (p *Pin) Configure() error {
	if !p.opened {
		if err := acquire(); err != nil {
			return fmt.Errorf("rpio: map GPIO registers: %v", err)
		}
		p.opened = true
	}
	p.pin.PullDown()
	p.pin.Output()
	p.pin.Low()
	glog.V(1).Infof("rpio: BCM %d configured as output, pull-down, low", p.number)
	return nil
}

// Assert implements gpio.Pin.
func (p *Pin) Assert() error {
	if !p.opened {
		return fmt.Errorf("rpio: BCM %d not configured", p.number)
	}
	p.pin.High()
	return nil
}

// Deassert implements gpio.Pin.
func (p *Pin) Deassert() error {
	if !p.opened {
		return fmt.Errorf("rpio: BCM %d not configured", p.number)
	}
	p.pin.Low()
	return nil
}

// Close drives the pin low and unmaps the registers when no pin uses them.
func (p *Pin) Close() error {
	if !p.opened {
		return nil
	}
	p.pin.Low()
	p.opened = false
	return release()
}
