package maxsonar

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/maxsonar.go/pkg/framework"
	"github.com/robotalks/maxsonar.go/pkg/gpio"
)

const (
	// DefaultStabilization is the wait after asserting the trigger before
	// free-run output is trusted. The datasheet minimum depends on the model.
	DefaultStabilization = 200 * time.Millisecond
	// DefaultReadTimeout bounds each read from the serial port.
	DefaultReadTimeout = 100 * time.Millisecond
)

// PortOpener opens a serial device for reading.
type PortOpener interface {
	OpenPort(name string, readTimeout time.Duration) (io.ReadCloser, error)
}

// The trigger line is process-wide: Sensors driving the same GPIO number
// share one lock.
var (
	triggerLocksMu sync.Mutex
	triggerLocks   = make(map[int]*sync.Mutex)
)

func triggerLock(pin int) *sync.Mutex {
	triggerLocksMu.Lock()
	defer triggerLocksMu.Unlock()
	lock := triggerLocks[pin]
	if lock == nil {
		lock = &sync.Mutex{}
		triggerLocks[pin] = lock
	}
	return lock
}

// Sensor drives the trigger line of one rangefinder and performs acquisitions.
// Acquisitions on the same trigger GPIO are serialized across all Sensors,
// the trigger is never shared by two calls.
type Sensor struct {
	Trigger       gpio.Pin
	Ports         PortOpener
	Stabilization time.Duration
	ReadTimeout   time.Duration

	configured bool
}

// NewSensor creates a Sensor with default timings.
func NewSensor(trigger gpio.Pin, ports PortOpener) *Sensor {
	return &Sensor{
		Trigger:       trigger,
		Ports:         ports,
		Stabilization: DefaultStabilization,
		ReadTimeout:   DefaultReadTimeout,
	}
}

// Init configures the trigger pin ahead of the first acquisition.
// It's optional, ReadDistance configures the pin when needed.
func (s *Sensor) Init() error {
	lock := triggerLock(s.Trigger.Number())
	lock.Lock()
	defer lock.Unlock()
	return s.configure()
}

// Close releases the trigger pin.
func (s *Sensor) Close() error {
	lock := triggerLock(s.Trigger.Number())
	lock.Lock()
	defer lock.Unlock()
	s.configured = false
	return s.Trigger.Close()
}

// ReadDistance performs one acquisition from the serial device.
// It blocks until a frame is read or a fatal error occurs.
func (s *Sensor) ReadDistance(device string) (Distance, error) {
	return s.ReadDistanceContext(context.Background(), device)
}

// ReadDistanceContext performs one acquisition bounded by ctx.
// When ctx is done while reading, the port is closed to unblock the read.
// The trigger is deasserted before returning in all cases.
func (s *Sensor) ReadDistanceContext(ctx context.Context, device string) (d Distance, err error) {
	lock := triggerLock(s.Trigger.Number())
	lock.Lock()
	defer lock.Unlock()

	if err = s.configure(); err != nil {
		return 0, err
	}

	err = s.Trigger.Assert()
	defer func() {
		if derr := s.deassert(); derr != nil && err == nil {
			d, err = 0, derr
		}
	}()
	if err != nil {
		return 0, &TriggerError{Pin: s.Trigger.Number(), Op: "assert", Err: err}
	}
	glog.V(1).Infof("trigger GPIO%d asserted for %q", s.Trigger.Number(), device)

	if err = s.stabilize(ctx); err != nil {
		return 0, err
	}

	port, err := s.Ports.OpenPort(device, s.readTimeout())
	if err != nil {
		return 0, &DeviceError{Device: device, Op: "open", Err: fmt.Errorf("%w: %v", ErrPortUnavailable, err)}
	}

	var frameErr error
	err = fx.RunWithContextCloser(ctx, port, func() error {
		d, frameErr = ReadFrame(port, device)
		return frameErr
	})
	if err != nil {
		return 0, err
	}
	glog.V(1).Infof("read %d from %q", d, device)
	return d, nil
}

func (s *Sensor) configure() error {
	if s.configured {
		return nil
	}
	if err := s.Trigger.Configure(); err != nil {
		return &TriggerError{Pin: s.Trigger.Number(), Op: "configure", Err: err}
	}
	s.configured = true
	return nil
}

// deassert releases the trigger. On failure the pin is reconfigured on
// the next acquisition.
func (s *Sensor) deassert() error {
	if err := s.Trigger.Deassert(); err != nil {
		s.configured = false
		glog.Errorf("trigger GPIO%d deassert failed: %v", s.Trigger.Number(), err)
		return &TriggerError{Pin: s.Trigger.Number(), Op: "deassert", Err: err}
	}
	glog.V(1).Infof("trigger GPIO%d deasserted", s.Trigger.Number())
	return nil
}

func (s *Sensor) stabilize(ctx context.Context) error {
	if s.Stabilization <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Stabilization)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sensor) readTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return s.ReadTimeout
}
