// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/maxsonar.go/pkg/cli/cmds/sensor"
)
