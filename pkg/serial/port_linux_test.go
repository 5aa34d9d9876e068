package serial

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openPty(t *testing.T) (*os.File, string) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	fd := int(master.Fd())
	require.NoError(t, unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0))
	num, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	require.NoError(t, err)
	return master, fmt.Sprintf("/dev/pts/%d", num)
}

func TestPtyHangup(t *testing.T) {
	master, name := openPty(t)
	port, err := NewOpener(0).OpenPort(name, 100*time.Millisecond)
	if err != nil {
		master.Close()
		t.Fatal(err)
	}
	defer port.Close()

	_, err = master.Write([]byte("R01"))
	require.NoError(t, err)
	require.NoError(t, master.Close())

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 6)
		for {
			if _, err := port.Read(buf); errors.Is(err, ErrHangup) || errors.Is(err, syscall.EIO) {
				done <- err
				return
			}
		}
	}()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("hangup not detected")
	}
}

func TestPtyReadTimeout(t *testing.T) {
	master, name := openPty(t)
	defer master.Close()
	port, err := NewOpener(0).OpenPort(name, 100*time.Millisecond)
	require.NoError(t, err)
	defer port.Close()

	buf := make([]byte, 6)
	for i := 0; i < hangupReads+1; i++ {
		n, err := port.Read(buf)
		require.Zero(t, n)
		require.False(t, errors.Is(err, ErrHangup))
	}
}
