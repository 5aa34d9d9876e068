package maxsonar

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/maxsonar.go/pkg/gpio"
	"github.com/robotalks/maxsonar.go/pkg/serial"
)

// DefaultTriggerPin is BCM 22, physical pin 15 on a Raspberry Pi header.
const DefaultTriggerPin = 22

// Config defines the wiring and timings of a sensor.
type Config struct {
	// Device is the serial device the sensor output is connected to.
	Device string `yaml:"device"`
	// TriggerPin is the GPIO connected to pin 4 of the sensor.
	TriggerPin int `yaml:"trigger_pin"`
	// GPIO selects the backend driving the trigger pin, see gpio.Backends.
	GPIO string `yaml:"gpio"`
	// Baud is the serial line rate.
	Baud int `yaml:"baud"`
	// Unit labels readings, the sensor model decides the unit.
	Unit          string        `yaml:"unit"`
	Stabilization time.Duration `yaml:"stabilization"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
}

var defaultConfig = Config{
	Device:        "/dev/ttyAMA0",
	TriggerPin:    DefaultTriggerPin,
	GPIO:          "rpio",
	Baud:          serial.DefaultBaud,
	Unit:          "cm",
	Stabilization: DefaultStabilization,
	ReadTimeout:   DefaultReadTimeout,
}

func init() {
	if val := os.Getenv("MAXSONAR_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("MAXSONAR_TRIGGER_PIN"); val != "" {
		if pin, err := strconv.Atoi(val); err == nil {
			defaultConfig.TriggerPin = pin
		}
	}
	if val := os.Getenv("MAXSONAR_GPIO"); val != "" {
		defaultConfig.GPIO = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device of the sensor.")
	flag.IntVar(&defaultConfig.TriggerPin, "trigger-pin", defaultConfig.TriggerPin, "GPIO number of the trigger line.")
	flag.StringVar(&defaultConfig.GPIO, "gpio", defaultConfig.GPIO, "GPIO backend: rpio or sysfs.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate.")
	flag.StringVar(&defaultConfig.Unit, "unit", defaultConfig.Unit, "Unit of the sensor output: cm or in.")
	flag.DurationVar(&defaultConfig.Stabilization, "stabilization", defaultConfig.Stabilization, "Wait after asserting the trigger.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Timeout of each serial read.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config without modifying it.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("sensor: device required")
	}
	if c.TriggerPin < 0 {
		return fmt.Errorf("sensor: invalid trigger pin %d", c.TriggerPin)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("sensor: invalid baud rate %d", c.Baud)
	}
	if c.Unit != "cm" && c.Unit != "in" {
		return fmt.Errorf("sensor: unit must be cm or in, got %q", c.Unit)
	}
	if c.Stabilization < 0 {
		return fmt.Errorf("sensor: stabilization must not be negative")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("sensor: read timeout must be > 0")
	}
	return nil
}

// NewSensor opens the trigger pin and creates a Sensor.
// GPIO backends must be registered, e.g. by importing pkg/gpio/all.
func (c *Config) NewSensor() (*Sensor, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pin, err := gpio.Open(c.GPIO, c.TriggerPin)
	if err != nil {
		return nil, err
	}
	s := NewSensor(pin, serial.NewOpener(c.Baud))
	s.Stabilization = c.Stabilization
	s.ReadTimeout = c.ReadTimeout
	return s, nil
}

// MustNewSensor creates a Sensor and fails on error.
func (c *Config) MustNewSensor() *Sensor {
	s, err := c.NewSensor()
	if err != nil {
		log.Fatalln(err)
	}
	return s
}
