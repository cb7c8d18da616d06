// Package bridge mirrors digital input changes to an MQTT broker. The
// publisher registers with the input registry like any connection does and
// publishes each level as a retained message on <topic>/input/<index>.
package bridge

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/remoteio/dio"
)

//go:generate go tool mockgen -destination=mock_client.go -package=bridge . Client

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Inputs is the input registry as seen by the publisher.
type Inputs interface {
	Valid(index int) bool
	Read(index int) (bool, error)
	Subscribe(sub dio.Subscriber, index int)
	UnsubscribeAll(sub dio.Subscriber)
}

const (
	// DefaultPublishTimeout bounds how long a publish result is awaited
	// before it is logged as lost.
	DefaultPublishTimeout = 5 * time.Second

	onlinePayload  = "online"
	offlinePayload = "offline"
)

// Publisher is a dio.Subscriber that forwards notifications to MQTT.
type Publisher struct {
	logger  *slog.Logger
	client  Client
	topic   string
	qos     byte
	timeout time.Duration
}

func NewPublisher(logger *slog.Logger, client Client, topic string) *Publisher {
	return &Publisher{
		logger:  logger,
		client:  client,
		topic:   topic,
		timeout: DefaultPublishTimeout,
	}
}

// InputTopic returns the topic carrying the level of input index.
func (p *Publisher) InputTopic(index int) string {
	return fmt.Sprintf("%s/input/%d", p.topic, index)
}

// StatusTopic returns the topic carrying the bridge's online state.
func (p *Publisher) StatusTopic() string {
	return p.topic + "/status"
}

// Notify publishes a level change. It is called with the registry locked,
// so it only hands the message to the client and watches the result from
// another goroutine.
func (p *Publisher) Notify(index int, state bool) {
	payload := "0"
	if state {
		payload = "1"
	}
	p.publish(p.InputTopic(index), payload)
}

func (p *Publisher) publish(topic, payload string) {
	token := p.client.Publish(topic, p.qos, true, payload)
	go func() {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				p.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
			}
		case <-time.After(p.timeout):
			p.logger.Warn("MQTT publish timed out", "topic", topic)
		}
	}()
}

// Mirror publishes the current level of every listed input and subscribes
// to their changes. Every index is checked before anything is published.
func (p *Publisher) Mirror(inputs Inputs, indices []int) error {
	for _, i := range indices {
		if !inputs.Valid(i) {
			return fmt.Errorf("%w: %d", ErrInvalidInput, i)
		}
	}

	p.publish(p.StatusTopic(), onlinePayload)
	for _, i := range indices {
		on, err := inputs.Read(i)
		if err != nil {
			return fmt.Errorf("read input %d: %w", i, err)
		}
		p.Notify(i, on)
		inputs.Subscribe(p, i)
	}
	p.logger.Info("Mirroring inputs", "topic", p.topic, "inputs", indices)
	return nil
}

// Close leaves the registry, marks the bridge offline and disconnects.
func (p *Publisher) Close(inputs Inputs) {
	inputs.UnsubscribeAll(p)
	token := p.client.Publish(p.StatusTopic(), p.qos, true, offlinePayload)
	if !token.WaitTimeout(p.timeout) {
		p.logger.Warn("MQTT offline status not acknowledged")
	}
	p.client.Disconnect(250)
}
