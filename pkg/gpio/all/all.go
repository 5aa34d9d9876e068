// Package all registers all GPIO backends.
package all

import (
	// backends
	_ "github.com/robotalks/maxsonar.go/pkg/gpio/rpio"
	_ "github.com/robotalks/maxsonar.go/pkg/gpio/sysfs"
)
