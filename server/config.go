package server

import (
	"log/slog"
	"time"

	"i4.energy/across/remoteio/protocol"
)

const (
	// DefaultMaxClients is the number of connection slots.
	DefaultMaxClients = 5
	// DefaultRxBufferSize is the capacity of each receive ring buffer.
	DefaultRxBufferSize = 1024
	// DefaultOutboxSize is how many responses may wait for the socket.
	DefaultOutboxSize = 64
	// DefaultWriteTimeout bounds one socket write.
	DefaultWriteTimeout = 5 * time.Second
)

// Config describes a Server. Build it with NewConfigBuilder.
type Config struct {
	dispatcher   Dispatcher
	registry     Registry
	logger       *slog.Logger
	observer     Observer
	maxClients   int
	rxBufferSize int
	outboxSize   int
	writeTimeout time.Duration
	parserOpts   []protocol.ParserOption
}

func (c *Config) validate() error {
	if c.dispatcher == nil {
		return ErrNoDispatcher
	}
	if c.registry == nil {
		return ErrNoRegistry
	}
	if c.maxClients < 0 || c.outboxSize < 0 || c.writeTimeout < 0 {
		return ErrInvalidConfig
	}
	// One slot of the ring always stays empty.
	if c.rxBufferSize < 0 || c.rxBufferSize == 1 {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.maxClients == 0 {
		c.maxClients = DefaultMaxClients
	}
	if c.rxBufferSize == 0 {
		c.rxBufferSize = DefaultRxBufferSize
	}
	if c.outboxSize == 0 {
		c.outboxSize = DefaultOutboxSize
	}
	if c.writeTimeout == 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDispatcher sets the command executor. Required.
func (b *ConfigBuilder) WithDispatcher(d Dispatcher) *ConfigBuilder {
	b.config.dispatcher = d
	return b
}

// WithRegistry sets the input registry connections unsubscribe from when
// they close. Required.
func (b *ConfigBuilder) WithRegistry(r Registry) *ConfigBuilder {
	b.config.registry = r
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

func (b *ConfigBuilder) WithObserver(o Observer) *ConfigBuilder {
	b.config.observer = o
	return b
}

// WithMaxClients sets how many connections may be open at once.
func (b *ConfigBuilder) WithMaxClients(n int) *ConfigBuilder {
	b.config.maxClients = n
	return b
}

// WithRxBufferSize sets the capacity of each connection's receive ring.
func (b *ConfigBuilder) WithRxBufferSize(n int) *ConfigBuilder {
	b.config.rxBufferSize = n
	return b
}

// WithOutboxSize sets how many responses and notifications may queue for a
// slow client. Notifications beyond it are dropped.
func (b *ConfigBuilder) WithOutboxSize(n int) *ConfigBuilder {
	b.config.outboxSize = n
	return b
}

func (b *ConfigBuilder) WithWriteTimeout(d time.Duration) *ConfigBuilder {
	b.config.writeTimeout = d
	return b
}

// WithParserOptions is applied to every connection's parser.
func (b *ConfigBuilder) WithParserOptions(opts ...protocol.ParserOption) *ConfigBuilder {
	b.config.parserOpts = append(b.config.parserOpts, opts...)
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
