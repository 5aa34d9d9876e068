// Package sysfs drives a trigger pin exported by the kernel under
// /sys/class/gpio, using periph.io.
package sysfs

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/host"
	"periph.io/x/periph/host/sysfs"

	mgpio "github.com/robotalks/maxsonar.go/pkg/gpio"
)

// BackendName is the name registered with gpio.Register.
const BackendName = "sysfs"

func init() {
	mgpio.Register(BackendName, func(number int) (mgpio.Pin, error) {
		return New(number), nil
	})
}

var (
	hostOnce sync.Once
	hostErr  error
)

func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// Pin is a kernel-exported output pin.
type Pin struct {
	number int
	pin    gpio.PinIO
}

// New creates a Pin. The pin is exported on Configure.
func New(number int) *Pin {
	return &Pin{number: number}
}

// Number implements gpio.Pin.
func (p *Pin) Number() int {
	return p.number
}

// Configure implements gpio.Pin.
// sysfs does not expose pull resistors, the idle level is driven low instead.
func (p *Pin) Configure() error {
	if p.pin == nil {
		if err := initHost(); err != nil {
			return fmt.Errorf("sysfs: init host: %v", err)
		}
		pin, ok := sysfs.Pins[p.number]
		if !ok {
			return fmt.Errorf("sysfs: no GPIO%d exported by the kernel", p.number)
		}
		p.pin = pin
	}
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("sysfs: GPIO%d set output: %v", p.number, err)
	}
	glog.V(1).Infof("sysfs: GPIO%d configured as output, low", p.number)
	return nil
}

// Assert implements gpio.Pin.
func (p *Pin) Assert() error {
	return p.out(gpio.High)
}

// Deassert implements gpio.Pin.
func (p *Pin) Deassert() error {
	return p.out(gpio.Low)
}

// Close implements io.Closer. The pin stays exported and low.
func (p *Pin) Close() error {
	if p.pin == nil {
		return nil
	}
	return p.out(gpio.Low)
}

func (p *Pin) out(level gpio.Level) error {
	if p.pin == nil {
		return fmt.Errorf("sysfs: GPIO%d not configured", p.number)
	}
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("sysfs: GPIO%d set %s: %v", p.number, level, err)
	}
	return nil
}
