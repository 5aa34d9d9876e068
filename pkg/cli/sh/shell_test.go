package sh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/maxsonar.go/pkg/gpio"
	"github.com/robotalks/maxsonar.go/pkg/maxsonar"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

type fakeSensor struct {
	devices []string
	err     error
}

func (s *fakeSensor) ReadDistanceContext(ctx context.Context, device string) (maxsonar.Distance, error) {
	s.devices = append(s.devices, device)
	if s.err != nil {
		return 0, s.err
	}
	return 123, nil
}

func newTestShell(sensor *fakeSensor) *Shell {
	conf := maxsonar.NewConfig()
	conf.Device = "/dev/ttyS0"
	return &Shell{ID: "tank", Config: conf, Timeout: time.Second, sensor: sensor}
}

func TestShellRead(t *testing.T) {
	sensor := &fakeSensor{}
	s := newTestShell(sensor)

	r := s.Read(context.Background(), "")
	require.True(t, r.OK())
	require.Equal(t, uint16(123), r.Distance)
	require.Equal(t, "tank", r.SensorID)
	require.Equal(t, "/dev/ttyS0", r.Device)

	s.SetDevice("/dev/ttyUSB0")
	s.Read(context.Background(), "")
	s.Read(context.Background(), "/dev/ttyAMA0")
	require.Equal(t, []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyAMA0"}, sensor.devices)

	sensor.err = errors.New("port not available")
	r = s.Read(context.Background(), "")
	require.False(t, r.OK())
	require.Equal(t, "port not available", r.Error)
}

func TestShellReadUnknownBackend(t *testing.T) {
	s := newTestShell(nil)
	s.sensor = nil
	s.Config.GPIO = "missing"
	r := s.Read(context.Background(), "")
	require.False(t, r.OK())
	require.Contains(t, r.Error, gpio.ErrUnknownBackend.Error())
	require.NoError(t, s.Close())
}

func TestFormatReading(t *testing.T) {
	s := newTestShell(&fakeSensor{})
	ok := &reading.Reading{SensorID: "tank", Device: "/dev/ttyS0", Distance: 45, Unit: "cm"}
	failed := &reading.Reading{SensorID: "tank", Device: "/dev/ttyS0", Unit: "cm", Error: "timeout"}

	out, err := s.FormatReading(ok)
	require.NoError(t, err)
	require.Equal(t, "45cm", out)
	out, err = s.FormatReading(failed)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS0: timeout", out)

	s.OutputJSON = true
	out, err = s.FormatReading(ok)
	require.NoError(t, err)
	decoded, err := reading.FormatJSON.Decode([]byte(out))
	require.NoError(t, err)
	require.Equal(t, uint16(45), decoded.Distance)
}

func TestFormatConfig(t *testing.T) {
	s := newTestShell(&fakeSensor{})
	out, err := s.FormatConfig()
	require.NoError(t, err)
	require.Contains(t, out, "device: /dev/ttyS0\n")
	require.Contains(t, out, "stabilization: 200ms\n")

	s.OutputJSON = true
	out, err = s.FormatConfig()
	require.NoError(t, err)
	require.Contains(t, out, `"Device":"/dev/ttyS0"`)
}
