// Package env assembles the daemon from its configuration.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/maxsonar.go/pkg/framework"
	"github.com/robotalks/maxsonar.go/pkg/maxsonar"
	"github.com/robotalks/maxsonar.go/pkg/monitor"
	"github.com/robotalks/maxsonar.go/pkg/publish"
	"github.com/robotalks/maxsonar.go/pkg/publish/mqtt"
	"github.com/robotalks/maxsonar.go/pkg/publish/websocket"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

// Config provides options to setup the daemon.
type Config struct {
	// ID identifies the sensor in published topics and readings.
	ID     string          `yaml:"id"`
	Sensor maxsonar.Config `yaml:"sensor"`

	// MQTTBrokerURL specifies the MQTT broker to publish to, disabled if empty.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// Listen is the address serving the websocket feed, disabled if empty.
	Listen string `yaml:"listen"`

	Interval     time.Duration  `yaml:"interval"`
	CycleTimeout time.Duration  `yaml:"cycle_timeout"`
	Format       reading.Format `yaml:"format"`
}

var (
	defaultConfig = Config{
		Interval:     monitor.DefaultInterval,
		CycleTimeout: monitor.DefaultCycleTimeout,
		Format:       reading.FormatJSON,
	}

	configFile string
)

func init() {
	if val := os.Getenv("MAXSONAR_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("MAXSONAR_LISTEN"); val != "" {
		defaultConfig.Listen = val
	}
	if val := os.Getenv("MAXSONAR_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
}

// SetupFlags sets command line flags, including the ones of the sensor.
func SetupFlags() {
	maxsonar.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "YAML config file, present keys override flags.")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Sensor ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "Websocket feed listen address")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Interval between readings")
	flag.DurationVar(&defaultConfig.CycleTimeout, "cycle-timeout", defaultConfig.CycleTimeout, "Timeout of a single reading")
	flag.Var(&formatFlag{&defaultConfig.Format}, "format", "Reading encoding: json or proto")
}

type formatFlag struct {
	f *reading.Format
}

func (f *formatFlag) String() string {
	if f.f == nil {
		return ""
	}
	return string(*f.f)
}

func (f *formatFlag) Set(val string) error {
	format, err := reading.ParseFormat(val)
	if err == nil {
		*f.f = format
	}
	return err
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Sensor = *maxsonar.NewConfig()
	return &conf
}

// LoadConfig creates a Config from defaults and the -config file.
func LoadConfig() (*Config, error) {
	conf := NewConfig()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// MustLoadConfig loads Config and fails on error.
func MustLoadConfig() *Config {
	conf, err := LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// LoadFile overrides the config with the keys present in a YAML file.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", fn, err)
	}
	return nil
}

// Validate checks the config without modifying it.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("sensor ID must be specified")
	}
	if strings.ContainsAny(c.ID, "/+#") {
		return fmt.Errorf("sensor ID %q must not contain MQTT topic separators or wildcards", c.ID)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if c.CycleTimeout < 0 {
		return fmt.Errorf("cycle timeout must not be negative")
	}
	if _, err := reading.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return c.Sensor.Validate()
}

// Env is the assembled daemon.
type Env struct {
	Config     *Config
	Sensor     *maxsonar.Sensor
	Monitor    *monitor.Monitor
	Publishers *publish.Mux
	MQTT       *mqtt.Publisher
	Feed       *websocket.Server
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sensor, err := c.Sensor.NewSensor()
	if err != nil {
		return nil, err
	}
	if err := sensor.Init(); err != nil {
		sensor.Close()
		return nil, err
	}
	env := &Env{
		Config:     c,
		Sensor:     sensor,
		Publishers: &publish.Mux{},
	}
	env.Monitor = monitor.New(c.ID, c.Sensor.Device, c.Sensor.Unit, sensor, env.Publishers)
	env.Monitor.Interval = c.Interval
	env.Monitor.CycleTimeout = c.CycleTimeout

	if c.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, mqtt.Meta{
			ID:     c.ID,
			Device: c.Sensor.Device,
			Unit:   c.Sensor.Unit,
			Format: c.Format,
		})
		if err != nil {
			sensor.Close()
			return nil, fmt.Errorf("create MQTT publisher error: %v", err)
		}
		pub.OnRequest = env.Monitor.Request
		env.MQTT = pub
		env.Publishers.Add(pub)
		env.Monitor.StatusPublishers = append(env.Monitor.StatusPublishers, pub)
	}
	if c.Listen != "" {
		env.Feed = &websocket.Server{Addr: c.Listen, Feed: websocket.NewFeed(c.Format)}
		env.Publishers.Add(env.Feed.Feed)
	}
	if len(env.Publishers.Publishers) == 0 {
		glog.Warning("no MQTT broker or websocket listener configured, readings are only logged")
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// Runnables returns everything to run in the daemon.
func (e *Env) Runnables() []framework.Runnable {
	runnables := []framework.Runnable{framework.NamedRun("monitor", e.Monitor)}
	if e.MQTT != nil {
		runnables = append(runnables, framework.NamedRun("mqtt", e.MQTT))
	}
	if e.Feed != nil {
		runnables = append(runnables, framework.NamedRun("websocket", e.Feed))
	}
	return runnables
}

// Close releases the sensor.
func (e *Env) Close() error {
	return e.Sensor.Close()
}
