package uart

import (
	"log/slog"
)

// MaxLineLength bounds one forwarded receive line. Longer runs are split.
const MaxLineLength = 128

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	if c.index < 0 {
		return ErrInvalidChannel
	}
	return nil
}

// Config describes one UART channel. Build it with NewConfigBuilder.
type Config struct {
	dialer  Dialer
	index   int
	logger  *slog.Logger
	backlog int
}

func (c *Config) setDefaults() {
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.backlog == 0 {
		c.backlog = 100
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets how the channel's transport is opened. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithIndex sets the channel number used as the variant on the wire.
func (b *ConfigBuilder) WithIndex(i int) *ConfigBuilder {
	b.config.index = i
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// WithBacklog sets how many received lines may queue before new ones are
// dropped.
func (b *ConfigBuilder) WithBacklog(n int) *ConfigBuilder {
	b.config.backlog = n
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
