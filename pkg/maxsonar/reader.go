package maxsonar

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/golang/glog"

	"github.com/robotalks/maxsonar.go/pkg/serial"
)

// ReadFrame reads from r until one frame is extracted.
// Read timeouts and transient errors are logged and reading continues,
// so without a frame ReadFrame only returns once the stream becomes
// unusable (e.g. it's closed).
func ReadFrame(r io.Reader, device string) (Distance, error) {
	var parser Parser
	return readFrame(r, device, &parser)
}

func readFrame(r io.Reader, device string, parser *Parser) (Distance, error) {
	buf := make([]byte, ScratchSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			glog.V(2).Infof("read %d bytes from %q: %q", n, device, buf[:n])
			d, done, perr := parser.Feed(buf[:n])
			if perr != nil {
				return 0, &DeviceError{Device: device, Op: "parse", Err: perr}
			}
			if done {
				return d, nil
			}
			glog.V(3).Infof("frame buffer of %q holds %d bytes", device, parser.Len())
		}
		switch {
		case err == nil || err == io.EOF:
			// serial ports with a VTIME timeout report expiry as an empty read.
			if n == 0 {
				glog.Warningf("timed out while reading from %q", device)
			}
		case os.IsTimeout(err):
			glog.Warningf("timed out while reading from %q", device)
		case isStreamFatal(err):
			return 0, &DeviceError{Device: device, Op: "read", Err: err}
		default:
			glog.Errorf("unexpected error reading from %q: %v", device, err)
		}
	}
}

func isStreamFatal(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, serial.ErrHangup) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, syscall.EBADF) ||
		errors.Is(err, syscall.ENXIO) ||
		errors.Is(err, syscall.ENODEV)
}
