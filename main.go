package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"i4.energy/across/remoteio/bridge"
	"i4.energy/across/remoteio/dio"
	"i4.energy/across/remoteio/dispatch"
	"i4.energy/across/remoteio/hal"
	"i4.energy/across/remoteio/metrics"
	"i4.energy/across/remoteio/protocol"
	"i4.energy/across/remoteio/server"
	"i4.energy/across/remoteio/settings"
	"i4.energy/across/remoteio/uart"
)

// FirmwareVersion is reported by the SystemInfo command. Set at build time
// with -ldflags "-X main.FirmwareVersion=...".
var FirmwareVersion = "dev"

var _ server.Observer = (*metrics.Metrics)(nil)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to a YAML configuration file")
	flag.String("bind-address", "", "Bind address for the command server (default all interfaces on the persisted TCP port)")
	flag.String("metrics-address", "0.0.0.0:9100", "Bind address for the metrics/health HTTP server, empty disables it")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("settings-path", "remoteio-settings.bin", "File holding the persisted settings record")
	flag.Int("max-clients", 5, "Maximum number of concurrent clients")
	flag.Int("rx-buffer-size", 1024, "Receive ring buffer capacity per client")
	flag.Int("max-raw-length", 256, "Maximum raw payload length of a command")
	flag.Duration("poll-interval", 10*time.Millisecond, "Input polling interval")
	flag.Duration("write-timeout", 5*time.Second, "Timeout for one write to a client")
	flag.String("backend", "sim", "Digital I/O backend (sim, gpiocdev)")
	flag.String("gpio-chip", "gpiochip0", "GPIO character device for the gpiocdev backend")
	flag.String("input-lines", "", "Comma separated chip lines of inputs 1..n")
	flag.String("output-lines", "", "Comma separated chip lines of outputs 1..n")
	flag.Int("sim-inputs", 16, "Number of simulated inputs")
	flag.Int("sim-outputs", 16, "Number of simulated outputs")
	flag.String("serial-ports", "", "Comma separated serial devices of UART channels 0..n")
	flag.String("led-port", "", "Serial device driving the LED chain")
	flag.String("mqtt-broker", "", "MQTT broker URL, empty disables the input mirror")
	flag.String("mqtt-client-id", "remoteio", "MQTT client id")
	flag.String("mqtt-topic", "remoteio", "MQTT topic root")
	flag.String("mqtt-username", "", "MQTT username")
	flag.String("mqtt-password", "", "MQTT password")
	flag.String("mqtt-inputs", "", "Comma separated input indices mirrored to MQTT")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// Cancelled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, config); err != nil {
		logger.Error("Remote I/O server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shut down")
}

func run(ctx context.Context, logger *slog.Logger, config *Config) error {
	store := settings.FileStore{Path: config.SettingsPath}
	mgr, err := settings.Open(logger.With("component", "settings"), store)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	rec := mgr.Snapshot()

	inBank, outBank, closeBank, err := openBanks(config)
	if err != nil {
		return err
	}
	defer closeBank()

	inputs := dio.NewInputs(logger.With("component", "inputs"), inBank, config.PollInterval)
	outputs := dio.NewOutputs(outBank)

	serial, err := openSerial(ctx, logger, config.SerialPorts, rec)
	if err != nil {
		return err
	}
	defer serial.Close()

	leds, closeLEDs, err := openLEDs(ctx, logger, config.LEDPort, int(rec.LEDCount))
	if err != nil {
		return err
	}
	defer closeLEDs()

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	d := &dispatch.Dispatcher{
		Logger:   logger.With("component", "dispatch"),
		Firmware: FirmwareVersion,
		Inputs:   inputs,
		Outputs:  outputs,
		Serial:   serial,
		LEDs:     leds,
		Settings: mgr,
	}

	srvConfig, err := server.NewConfigBuilder().
		WithDispatcher(d).
		WithRegistry(inputs).
		WithLogger(logger.With("component", "server")).
		WithObserver(m).
		WithMaxClients(config.MaxClients).
		WithRxBufferSize(config.RxBufferSize).
		WithWriteTimeout(config.WriteTimeout).
		WithParserOptions(protocol.WithMaxRawLength(config.MaxRawLength)).
		Build()
	if err != nil {
		return fmt.Errorf("create server config: %w", err)
	}
	srv := server.New(srvConfig)

	addr := config.BindAddress
	if addr == "" {
		addr = fmt.Sprintf("0.0.0.0:%d", rec.TCPPort)
	}

	logger.Info("Starting remote I/O server",
		"firmware", FirmwareVersion,
		"address", addr,
		"inputs", inputs.Count(),
		"outputs", outputs.Count(),
		"uarts", serial.Count(),
		"leds", leds.Count(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return inputs.Run(ctx) })
	g.Go(func() error {
		err := serial.Run(ctx, func(l uart.Line) {
			m.UARTLine(l.Channel)
			srv.ForwardSerial(l)
		})
		// A dead UART only stops forwarding; commands keep working.
		if err != nil && ctx.Err() == nil {
			logger.Error("UART forwarding stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error { return srv.ListenAndServe(ctx, addr) })

	if config.MetricsAddress != "" {
		httpServer := &http.Server{
			Addr: config.MetricsAddress,
			Handler: &Server{
				Logger:      logger.With("component", "http"),
				Firmware:    FirmwareVersion,
				Settings:    mgr,
				Connections: srv,
				Metrics:     m.Handler(),
			},
		}
		g.Go(func() error {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("Closing HTTP server")
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if config.MQTTBroker != "" {
		pub, err := startBridge(ctx, logger, config, inputs)
		if err != nil {
			logger.Warn("MQTT mirror disabled", "error", err)
		} else {
			defer pub.Close(inputs)
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openBanks builds the digital I/O backend.
func openBanks(config *Config) (dio.InputBank, dio.OutputBank, func() error, error) {
	switch config.Backend {
	case "gpiocdev":
		chip, err := hal.OpenChip(config.GPIOChip, config.InputLines, config.OutputLines)
		if err != nil {
			return nil, nil, nil, err
		}
		return chip, chip, chip.Close, nil
	default:
		bank := hal.NewSimBank(config.SimInputs, config.SimOutputs)
		return bank, bank, func() error { return nil }, nil
	}
}

// openSerial opens one channel per configured port. A failing port is
// logged and left empty so the rest of the board stays usable.
func openSerial(ctx context.Context, logger *slog.Logger, ports []string, rec settings.Record) (*uart.Set, error) {
	channels := make([]*uart.Channel, min(len(ports), settings.NumUARTs))
	for i := range channels {
		if ports[i] == "" {
			continue
		}
		cfg, err := uart.NewConfigBuilder().
			WithDialer(uart.SerialDialer{PortName: ports[i], Mode: uart.ModeFor(rec.UART[i])}).
			WithIndex(i).
			WithLogger(logger.With("component", "uart")).
			Build()
		if err != nil {
			return nil, fmt.Errorf("create uart %d config: %w", i, err)
		}
		ch, err := uart.New(ctx, cfg)
		if err != nil {
			logger.Warn("UART channel unavailable", "channel", i, "port", ports[i], "error", err)
			continue
		}
		channels[i] = ch
	}
	if len(ports) > settings.NumUARTs {
		logger.Warn("Extra serial ports ignored", "configured", len(ports), "supported", settings.NumUARTs)
	}
	return uart.NewSet(channels...), nil
}

// openLEDs drives the LED chain over a serial link, or discards frames when
// no port is configured.
func openLEDs(ctx context.Context, logger *slog.Logger, port string, count int) (*hal.LEDStrip, func() error, error) {
	if port == "" {
		return hal.NewLEDStrip(io.Discard, count), func() error { return nil }, nil
	}
	link, err := uart.SerialDialer{PortName: port}.Dial(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open led port: %w", err)
	}
	logger.Info("LED chain attached", "port", port, "count", count)
	return hal.NewLEDStrip(link, count), link.Close, nil
}

func startBridge(ctx context.Context, logger *slog.Logger, config *Config, inputs *dio.Inputs) (*bridge.Publisher, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := bridge.Connect(connectCtx, logger.With("component", "mqtt"), bridge.Options{
		Broker:   config.MQTTBroker,
		ClientID: config.MQTTClientID,
		Username: config.MQTTUsername,
		Password: config.MQTTPassword,
		Topic:    config.MQTTTopic,
	})
	if err != nil {
		return nil, err
	}

	pub := bridge.NewPublisher(logger.With("component", "mqtt"), client, config.MQTTTopic)
	if err := pub.Mirror(inputs, config.MQTTInputs); err != nil {
		client.Disconnect(0)
		return nil, err
	}
	return pub, nil
}
