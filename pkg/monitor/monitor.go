// Package monitor acquires readings periodically or on request and hands
// them to publishers.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/maxsonar.go/pkg/framework"
	"github.com/robotalks/maxsonar.go/pkg/maxsonar"
	"github.com/robotalks/maxsonar.go/pkg/publish"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

const (
	// DefaultInterval is the default period between acquisitions.
	DefaultInterval = time.Minute
	// DefaultCycleTimeout bounds a single acquisition.
	DefaultCycleTimeout = 5 * time.Second
)

// DistanceReader acquires a distance from a device.
type DistanceReader interface {
	ReadDistanceContext(ctx context.Context, device string) (maxsonar.Distance, error)
}

// StatusPublisher delivers the sensor health after each acquisition.
type StatusPublisher interface {
	PublishStatus(context.Context, Status) error
}

// Status is the health of the monitored sensor.
type Status struct {
	Healthy             bool             `json:"healthy"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	Readings            int              `json:"readings"`
	Last                *reading.Reading `json:"last,omitempty"`
}

// Monitor drives a sensor.
type Monitor struct {
	ID           string
	Device       string
	Unit         string
	Interval     time.Duration
	CycleTimeout time.Duration
	Sensor       DistanceReader
	Publisher    publish.Publisher
	// StatusPublishers receive the health after every recorded acquisition.
	StatusPublishers []StatusPublisher

	requestCh  chan struct{}
	initOnce   sync.Once
	statusLock sync.RWMutex
	status     Status
}

// New creates a Monitor.
func New(id, device, unit string, sensor DistanceReader, pub publish.Publisher) *Monitor {
	return &Monitor{
		ID:           id,
		Device:       device,
		Unit:         unit,
		Interval:     DefaultInterval,
		CycleTimeout: DefaultCycleTimeout,
		Sensor:       sensor,
		Publisher:    pub,
	}
}

func (m *Monitor) init() {
	m.initOnce.Do(func() {
		m.requestCh = make(chan struct{}, 1)
	})
}

// Request asks for an acquisition as soon as possible.
// Requests made while one is pending are coalesced.
func (m *Monitor) Request() {
	m.init()
	select {
	case m.requestCh <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the sensor health.
func (m *Monitor) Status() Status {
	m.statusLock.RLock()
	defer m.statusLock.RUnlock()
	return m.status
}

// ReadOnce performs a single acquisition and publishes the result.
// The returned reading carries the acquisition error, if any. The error
// returned is from publishing the reading and the status, or ctx.Err() when ctx is done before the
// reading is recorded.
func (m *Monitor) ReadOnce(ctx context.Context) (*reading.Reading, error) {
	cycleCtx := ctx
	if m.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, m.CycleTimeout)
		defer cancel()
	}
	d, err := m.Sensor.ReadDistanceContext(cycleCtx, m.Device)
	r := reading.New(m.ID, m.Device, m.Unit, uint16(d), err)
	if ctx.Err() != nil {
		return r, ctx.Err()
	}
	m.record(r)
	if err != nil {
		glog.Errorf("%s: read %s failed: %v", m.ID, m.Device, err)
	} else {
		glog.V(1).Infof("%s: %d%s", m.ID, r.Distance, r.Unit)
	}
	var errs fx.AggregatedError
	if m.Publisher != nil {
		errs.Add(m.Publisher.Publish(ctx, r))
	}
	if len(m.StatusPublishers) > 0 {
		status := m.Status()
		for _, pub := range m.StatusPublishers {
			errs.Add(pub.PublishStatus(ctx, status))
		}
	}
	return r, errs.Aggregate()
}

// Run implements Runnable.
func (m *Monitor) Run(ctx context.Context) error {
	m.init()
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := m.ReadOnce(ctx); err != nil && ctx.Err() == nil {
			glog.Warningf("%s: publish failed: %v", m.ID, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-m.requestCh:
		}
	}
}

func (m *Monitor) record(r *reading.Reading) {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()
	m.status.Readings++
	m.status.Last = r
	m.status.Healthy = r.OK()
	if r.OK() {
		m.status.ConsecutiveFailures = 0
	} else {
		m.status.ConsecutiveFailures++
	}
}
