package maxsonar

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePin struct {
	number int
	fail   map[string]error

	ops  []string
	lock sync.Mutex
}

func newFakePin() *fakePin {
	return &fakePin{number: 22, fail: make(map[string]error)}
}

func (p *fakePin) record(op string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.ops = append(p.ops, op)
	return p.fail[op]
}

func (p *fakePin) Number() int      { return p.number }
func (p *fakePin) Configure() error { return p.record("configure") }
func (p *fakePin) Assert() error    { return p.record("assert") }
func (p *fakePin) Deassert() error  { return p.record("deassert") }
func (p *fakePin) Close() error     { return p.record("close") }

func (p *fakePin) Ops() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.ops...)
}

type fakePorts struct {
	pin     *fakePin
	streams map[string]func() io.ReadCloser

	opened []string
	lock   sync.Mutex
}

func (f *fakePorts) OpenPort(name string, readTimeout time.Duration) (io.ReadCloser, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.opened = append(f.opened, name)
	f.pin.record("open")
	if fn := f.streams[name]; fn != nil {
		return fn(), nil
	}
	return nil, errors.New("no such device")
}

func newTestSensor(streams map[string]func() io.ReadCloser) (*Sensor, *fakePin, *fakePorts) {
	pin := newFakePin()
	ports := &fakePorts{pin: pin, streams: streams}
	s := NewSensor(pin, ports)
	s.Stabilization = time.Millisecond
	return s, pin, ports
}

func streamOf(steps ...readStep) func() io.ReadCloser {
	return func() io.ReadCloser {
		return newStepStream(append([]readStep(nil), steps...)...)
	}
}

// blockingStream never produces data and unblocks when closed.
type blockingStream struct {
	closeCh chan struct{}
	once    sync.Once
}

func (s *blockingStream) Read(p []byte) (int, error) {
	select {
	case <-s.closeCh:
		return 0, os.ErrClosed
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (s *blockingStream) Close() error {
	s.once.Do(func() { close(s.closeCh) })
	return nil
}

func TestReadDistance(t *testing.T) {
	s, pin, _ := newTestSensor(map[string]func() io.ReadCloser{
		"/dev/ttyS0": streamOf(data("XXR0045\r")),
	})
	d, err := s.ReadDistance("/dev/ttyS0")
	require.NoError(t, err)
	require.Equal(t, Distance(45), d)
	require.Equal(t, []string{"configure", "assert", "open", "deassert"}, pin.Ops())

	d, err = s.ReadDistance("/dev/ttyS0")
	require.NoError(t, err)
	require.Equal(t, Distance(45), d)
	require.Equal(t, []string{"configure", "assert", "open", "deassert", "assert", "open", "deassert"}, pin.Ops())
}

func TestReadDistanceFailures(t *testing.T) {
	testCases := []struct {
		name   string
		device string
		fail   string
		err    error
		ops    []string
	}{
		{
			name:   "port unavailable",
			device: "/dev/missing",
			err:    ErrPortUnavailable,
			ops:    []string{"configure", "assert", "open", "deassert"},
		},
		{
			name:   "parse failure",
			device: "/dev/bad",
			err:    ErrInvalidNumber,
			ops:    []string{"configure", "assert", "open", "deassert"},
		},
		{
			name:   "stream closed",
			device: "/dev/gone",
			err:    io.ErrClosedPipe,
			ops:    []string{"configure", "assert", "open", "deassert"},
		},
		{
			name:   "configure failure",
			device: "/dev/ttyS0",
			fail:   "configure",
			ops:    []string{"configure"},
		},
		{
			name:   "assert failure",
			device: "/dev/ttyS0",
			fail:   "assert",
			ops:    []string{"configure", "assert", "deassert"},
		},
		{
			name:   "deassert failure",
			device: "/dev/ttyS0",
			fail:   "deassert",
			ops:    []string{"configure", "assert", "open", "deassert"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, pin, _ := newTestSensor(map[string]func() io.ReadCloser{
				"/dev/ttyS0": streamOf(data("R0123\r")),
				"/dev/bad":   streamOf(data("R12A4\r")),
				"/dev/gone":  streamOf(data("R0"), failure(io.ErrClosedPipe)),
			})
			failErr := errors.New(tc.fail + " failed")
			if tc.fail != "" {
				pin.fail[tc.fail] = failErr
			}
			d, err := s.ReadDistance(tc.device)
			require.Error(t, err)
			require.Zero(t, d)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Contains(t, err.Error(), tc.device)
			} else {
				var trigErr *TriggerError
				require.True(t, errors.As(err, &trigErr))
				require.Equal(t, tc.fail, trigErr.Op)
				require.Equal(t, 22, trigErr.Pin)
				require.ErrorIs(t, err, failErr)
			}
			require.Equal(t, tc.ops, pin.Ops())
		})
	}
}

func TestReadDistanceReconfiguresAfterDeassertFailure(t *testing.T) {
	s, pin, _ := newTestSensor(map[string]func() io.ReadCloser{
		"/dev/ttyS0": streamOf(data("R0123\r")),
	})
	pin.fail["deassert"] = errors.New("deassert failed")
	_, err := s.ReadDistance("/dev/ttyS0")
	require.Error(t, err)

	delete(pin.fail, "deassert")
	d, err := s.ReadDistance("/dev/ttyS0")
	require.NoError(t, err)
	require.Equal(t, Distance(123), d)
	require.Equal(t, []string{
		"configure", "assert", "open", "deassert",
		"configure", "assert", "open", "deassert",
	}, pin.Ops())
}

func TestReadDistanceContext(t *testing.T) {
	t.Run("cancel while reading", func(t *testing.T) {
		stream := &blockingStream{closeCh: make(chan struct{})}
		s, pin, _ := newTestSensor(map[string]func() io.ReadCloser{
			"/dev/ttyS0": func() io.ReadCloser { return stream },
		})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := s.ReadDistanceContext(ctx, "/dev/ttyS0")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, []string{"configure", "assert", "open", "deassert"}, pin.Ops())
		select {
		case <-stream.closeCh:
		default:
			t.Fatal("port not closed")
		}
	})

	t.Run("cancel while stabilizing", func(t *testing.T) {
		s, pin, ports := newTestSensor(map[string]func() io.ReadCloser{
			"/dev/ttyS0": streamOf(data("R0123\r")),
		})
		s.Stabilization = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.ReadDistanceContext(ctx, "/dev/ttyS0")
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, ports.opened)
		require.Equal(t, []string{"configure", "assert", "deassert"}, pin.Ops())
	})
}

func TestReadDistanceSerialized(t *testing.T) {
	s, pin, _ := newTestSensor(map[string]func() io.ReadCloser{
		"/dev/ttyS0": streamOf(data("R0"), failure(timeoutError{}), data("123\r")),
	})
	const calls = 8
	var wg sync.WaitGroup
	errCh := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.ReadDistance("/dev/ttyS0")
			if err == nil && d != 123 {
				err = errors.New("unexpected distance")
			}
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	ops := pin.Ops()
	require.Equal(t, "configure", ops[0])
	ops = ops[1:]
	require.Len(t, ops, calls*3)
	for i := 0; i < len(ops); i += 3 {
		require.Equal(t, []string{"assert", "open", "deassert"}, ops[i:i+3])
	}
}

func TestInitAndClose(t *testing.T) {
	s, pin, _ := newTestSensor(nil)
	require.NoError(t, s.Init())
	require.NoError(t, s.Init())
	require.NoError(t, s.Close())
	require.Equal(t, []string{"configure", "close"}, pin.Ops())
}

func TestReadDistanceSerializedAcrossSensors(t *testing.T) {
	pin := newFakePin()
	ports := &fakePorts{pin: pin, streams: map[string]func() io.ReadCloser{
		"/dev/ttyS0": streamOf(data("R0"), failure(timeoutError{}), data("123\r")),
	}}
	sensors := []*Sensor{NewSensor(pin, ports), NewSensor(pin, ports)}
	for _, s := range sensors {
		s.Stabilization = time.Millisecond
	}
	const calls = 8
	var wg sync.WaitGroup
	errCh := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(s *Sensor) {
			defer wg.Done()
			_, err := s.ReadDistance("/dev/ttyS0")
			errCh <- err
		}(sensors[i%len(sensors)])
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	var ops []string
	for _, op := range pin.Ops() {
		if op != "configure" {
			ops = append(ops, op)
		}
	}
	require.Len(t, ops, calls*3)
	for i := 0; i < len(ops); i += 3 {
		require.Equal(t, []string{"assert", "open", "deassert"}, ops[i:i+3])
	}
}
