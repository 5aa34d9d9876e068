// Package sh provides an interactive shell to operate a sensor.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/abiosoft/ishell"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/maxsonar.go/pkg/env"
	"github.com/robotalks/maxsonar.go/pkg/maxsonar"
	"github.com/robotalks/maxsonar.go/pkg/monitor"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// ID labels the readings.
	ID string
	// Timeout bounds a single reading.
	Timeout time.Duration

	Shell  *ishell.Shell
	Config *maxsonar.Config

	sensor monitor.DistanceReader
	closer io.Closer
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DeviceCmd,
		&ConfigCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *maxsonar.Config, id string) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		ID:          id,
		Timeout:     monitor.DefaultCycleTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Sensor returns the sensor, opening it on first use.
func (s *Shell) Sensor() (monitor.DistanceReader, error) {
	if s.sensor != nil {
		return s.sensor, nil
	}
	sensor, err := s.Config.NewSensor()
	if err != nil {
		return nil, err
	}
	s.sensor, s.closer = sensor, sensor
	return sensor, nil
}

// SetDevice switches the serial device used by default.
func (s *Shell) SetDevice(device string) {
	s.Config.Device = device
	s.updatePrompt()
}

// Read acquires a reading from device, or the configured device if empty.
func (s *Shell) Read(ctx context.Context, device string) *reading.Reading {
	if device == "" {
		device = s.Config.Device
	}
	sensor, err := s.Sensor()
	if err != nil {
		return reading.New(s.ID, device, s.Config.Unit, 0, err)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	d, err := sensor.ReadDistanceContext(ctx, device)
	return reading.New(s.ID, device, s.Config.Unit, uint16(d), err)
}

// FormatReading prints a reading for display.
func (s *Shell) FormatReading(r *reading.Reading) (string, error) {
	if s.OutputJSON {
		out, err := json.Marshal(r)
		return string(out), err
	}
	if !r.OK() {
		return fmt.Sprintf("%s: %s", r.Device, r.Error), nil
	}
	return fmt.Sprintf("%d%s", r.Distance, r.Unit), nil
}

// PrintReading prints a reading and reports acquisition failure as error.
func PrintReading(c *ishell.Context, r *reading.Reading) {
	s := ShellFrom(c)
	out, err := s.FormatReading(r)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(out)
	if !r.OK() && !s.OutputJSON {
		c.Err(r.Err())
	}
}

// FormatConfig prints the current config as YAML or JSON.
func (s *Shell) FormatConfig() (string, error) {
	var out []byte
	var err error
	if s.OutputJSON {
		out, err = json.Marshal(s.Config)
	} else {
		out, err = yaml.Marshal(s.Config)
	}
	return string(out), err
}

// Close releases the sensor if opened.
func (s *Shell) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.sensor, s.closer = nil, nil
	return err
}

func (s *Shell) updatePrompt() {
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Config.Device))
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			s.Close()
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DeviceCmd shows or switches the serial device.
	DeviceCmd = ishell.Cmd{
		Name:    "device",
		Aliases: []string{"dev"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.SetDevice(c.Args[0])
				return
			}
			c.Println(s.Config.Device)
		},
	}

	// ConfigCmd prints the sensor config.
	ConfigCmd = ishell.Cmd{
		Name: "config",
		Help: "",
		Func: func(c *ishell.Context) {
			out, err := ShellFrom(c).FormatConfig()
			if err != nil {
				c.Err(err)
				return
			}
			c.Print(out)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(maxsonar.NewConfig(), env.Default().ID).Run(flag.Args()...)
}
