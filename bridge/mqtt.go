package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Options describe the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the root every bridge topic hangs off. The broker publishes
	// "offline" on <Topic>/status if the bridge vanishes.
	Topic string
}

// Connect opens a client to the broker with automatic reconnects. It waits
// for the first connection until ctx is done.
func Connect(ctx context.Context, logger *slog.Logger, o Options) (mqtt.Client, error) {
	if o.Broker == "" {
		return nil, ErrNoBroker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetWill(o.Topic+"/status", offlinePayload, 0, true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", "broker", o.Broker)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect %s: %w", o.Broker, err)
		}
		return client, nil
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectTimeout, ctx.Err())
	}
}
