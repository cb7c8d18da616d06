package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the command server listens on. Empty
	// selects all interfaces on the persisted TCP port.
	BindAddress string `yaml:"bind_address"`
	// MetricsAddress is the address of the HTTP side channel serving
	// /metrics, /healthz and /settings. Empty disables it.
	MetricsAddress string `yaml:"metrics_address"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// SettingsPath is the file holding the persisted settings record
	SettingsPath string `yaml:"settings_path"`

	// MaxClients is the number of concurrent client connections
	MaxClients int `yaml:"max_clients"`
	// RxBufferSize is the receive ring capacity of each connection
	RxBufferSize int `yaml:"rx_buffer_size"`
	// MaxRawLength caps the raw payload a command may announce
	MaxRawLength int `yaml:"max_raw_length"`
	// PollInterval is how often subscribed inputs are sampled
	PollInterval time.Duration `yaml:"poll_interval"`
	// WriteTimeout bounds one write to a client
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Backend selects the digital I/O implementation: "sim" or "gpiocdev"
	Backend string `yaml:"backend"`
	// GPIOChip is the character device used by the gpiocdev backend
	GPIOChip string `yaml:"gpio_chip"`
	// InputLines are the chip line offsets of inputs 1..n
	InputLines []int `yaml:"input_lines"`
	// OutputLines are the chip line offsets of outputs 1..n
	OutputLines []int `yaml:"output_lines"`
	// SimInputs and SimOutputs size the simulated bank
	SimInputs  int `yaml:"sim_inputs"`
	SimOutputs int `yaml:"sim_outputs"`

	// SerialPorts are the devices of UART channels 0..n. An empty entry
	// leaves that channel unconnected.
	SerialPorts []string `yaml:"serial_ports"`
	// LEDPort is the serial device driving the WS28xx chain. Empty discards
	// LED frames.
	LEDPort string `yaml:"led_port"`

	// MQTTBroker enables the input mirror when set (e.g. "tcp://localhost:1883")
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTUsername string `yaml:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password"`
	// MQTTInputs are the input indices mirrored to the broker
	MQTTInputs []int `yaml:"mqtt_inputs"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.MetricsAddress = "0.0.0.0:9100"
		c.LogLevel = "info"
		c.SettingsPath = "remoteio-settings.bin"
		c.MaxClients = 5
		c.RxBufferSize = 1024
		c.MaxRawLength = 256
		c.PollInterval = 10 * time.Millisecond
		c.WriteTimeout = 5 * time.Second
		c.Backend = "sim"
		c.GPIOChip = "gpiochip0"
		c.SimInputs = 16
		c.SimOutputs = 16
		c.MQTTClientID = "remoteio"
		c.MQTTTopic = "remoteio"
		return nil
	}
}

// WithFile merges a YAML file over the current values. Keys missing from
// the file keep their value. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		for name, value := range envValues() {
			c.set(name, value)
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			c.set(f.Name, f.Value.String())
		})
		return nil
	}
}

// envValues maps the set environment variables to their flag names.
func envValues() map[string]string {
	out := make(map[string]string)
	for _, name := range settingNames {
		env := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v := os.Getenv(env); v != "" {
			out[name] = v
		}
	}
	return out
}

// settingNames are the flag names understood by set. The environment
// variable of each is its upper snake case form.
var settingNames = []string{
	"bind-address", "metrics-address", "log-level", "settings-path",
	"max-clients", "rx-buffer-size", "max-raw-length", "poll-interval", "write-timeout",
	"backend", "gpio-chip", "input-lines", "output-lines", "sim-inputs", "sim-outputs",
	"serial-ports", "led-port",
	"mqtt-broker", "mqtt-client-id", "mqtt-topic", "mqtt-username", "mqtt-password", "mqtt-inputs",
}

// set applies one named value. Malformed numbers and lists are ignored.
func (c *Config) set(name, value string) {
	switch name {
	case "bind-address":
		c.BindAddress = value
	case "metrics-address":
		c.MetricsAddress = value
	case "log-level":
		c.LogLevel = value
	case "settings-path":
		c.SettingsPath = value
	case "max-clients":
		setInt(&c.MaxClients, value)
	case "rx-buffer-size":
		setInt(&c.RxBufferSize, value)
	case "max-raw-length":
		setInt(&c.MaxRawLength, value)
	case "poll-interval":
		if d, err := time.ParseDuration(value); err == nil {
			c.PollInterval = d
		}
	case "write-timeout":
		if d, err := time.ParseDuration(value); err == nil {
			c.WriteTimeout = d
		}
	case "backend":
		c.Backend = value
	case "gpio-chip":
		c.GPIOChip = value
	case "input-lines":
		setInts(&c.InputLines, value)
	case "output-lines":
		setInts(&c.OutputLines, value)
	case "sim-inputs":
		setInt(&c.SimInputs, value)
	case "sim-outputs":
		setInt(&c.SimOutputs, value)
	case "serial-ports":
		c.SerialPorts = splitList(value)
	case "led-port":
		c.LEDPort = value
	case "mqtt-broker":
		c.MQTTBroker = value
	case "mqtt-client-id":
		c.MQTTClientID = value
	case "mqtt-topic":
		c.MQTTTopic = value
	case "mqtt-username":
		c.MQTTUsername = value
	case "mqtt-password":
		c.MQTTPassword = value
	case "mqtt-inputs":
		setInts(&c.MQTTInputs, value)
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxClients < 1 {
		errs = append(errs, fmt.Errorf("max clients must be positive, got %d", c.MaxClients))
	}
	if c.RxBufferSize < 2 {
		errs = append(errs, fmt.Errorf("rx buffer size must be at least 2, got %d", c.RxBufferSize))
	}
	if c.MaxRawLength < 1 {
		errs = append(errs, fmt.Errorf("max raw length must be positive, got %d", c.MaxRawLength))
	}
	switch c.Backend {
	case "sim":
		if c.SimInputs < 0 || c.SimInputs > 32 || c.SimOutputs < 0 || c.SimOutputs > 32 {
			errs = append(errs, errors.New("simulated inputs and outputs must be between 0 and 32"))
		}
	case "gpiocdev":
		if len(c.InputLines) > 32 || len(c.OutputLines) > 32 {
			errs = append(errs, errors.New("at most 32 input and 32 output lines"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		errs = append(errs, errors.New("mqtt topic is required with a broker"))
	}
	return errors.Join(errs...)
}

func setInt(dst *int, value string) {
	if v, err := strconv.Atoi(value); err == nil {
		*dst = v
	}
}

func setInts(dst *[]int, value string) {
	var out []int
	for _, s := range splitList(value) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return
		}
		out = append(out, v)
	}
	*dst = out
}

// splitList splits a comma separated list. Entries are trimmed but empty
// entries are kept so positions stay meaningful.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
