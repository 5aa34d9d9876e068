// Package sensor adds acquisition commands to the shell.
package sensor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/maxsonar.go/pkg/cli/sh"
)

// DefaultWatchInterval is the interval between readings of watch.
const DefaultWatchInterval = time.Second

var (
	// ReadCmd takes a single reading.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			sh.PrintReading(c, sh.ShellFrom(c).Read(context.Background(), device))
		},
	}

	// WatchCmd takes readings repeatedly.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[COUNT] [INTERVAL], COUNT 0 is unlimited",
		Func: func(c *ishell.Context) {
			count, interval, err := ParseWatchArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			for n := 0; count == 0 || n < count; n++ {
				if n > 0 {
					time.Sleep(interval)
				}
				r := s.Read(context.Background(), "")
				out, err := s.FormatReading(r)
				if err != nil {
					c.Err(err)
					return
				}
				if s.OutputJSON {
					c.Println(out)
				} else {
					c.Printf("%s %s\n", r.At.Format("15:04:05.000"), out)
				}
			}
		},
	}
)

// ParseWatchArgs parses the arguments of watch.
func ParseWatchArgs(args []string) (count int, interval time.Duration, err error) {
	interval = DefaultWatchInterval
	if len(args) > 0 {
		if count, err = strconv.Atoi(args[0]); err != nil || count < 0 {
			return 0, 0, fmt.Errorf("Invalid COUNT: %s", args[0])
		}
	}
	if len(args) > 1 {
		if interval, err = time.ParseDuration(args[1]); err != nil || interval <= 0 {
			return 0, 0, fmt.Errorf("Invalid INTERVAL: %s", args[1])
		}
	}
	return count, interval, nil
}

func init() {
	sh.AddCmds(
		&ReadCmd,
		&WatchCmd,
	)
}
