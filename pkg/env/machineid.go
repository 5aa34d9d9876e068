package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const idLen = 12

// MachineID retrieves an ID identifying the machine, derived from the
// machine ID so the raw value isn't published.
func MachineID() string {
	id, err := machineid.ProtectedID("maxsonar")
	if err == nil {
		return id[:idLen]
	}
	glog.V(1).Infof("machine ID unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "maxsonar"
}
