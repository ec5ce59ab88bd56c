// Package broker publishes messages to an MQTT broker.
package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected indicates Publish was called while the client is offline.
var ErrNotConnected = errors.New("mqtt not connected")

// Publisher sends payloads under the configured topic root.
type Publisher struct {
	client         mqtt.Client
	topic          string
	qos            byte
	connectTimeout time.Duration
	publishTimeout time.Duration
	connected      atomic.Bool
	logger         *slog.Logger
}

// New creates a Publisher. The client reconnects automatically after the
// initial Connect succeeds.
func New(cfg *Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		topic:          cfg.Topic,
		qos:            byte(cfg.QoS),
		connectTimeout: cfg.ConnectTimeoutDuration(),
		publishTimeout: cfg.PublishTimeoutDuration(),
		logger:         logger.With("system", "broker"),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.connected.Store(true)
		p.logger.Info("mqtt connection established", "broker", cfg.URL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.connected.Store(false)
		p.logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect dials the broker and waits up to the connect timeout.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.connectTimeout) {
		return fmt.Errorf("mqtt connection timeout after %v", p.connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.connected.Store(true)
	return nil
}

// Topic joins the topic root and a subtopic.
func (p *Publisher) Topic(subtopic string) string {
	return Topic(p.topic, subtopic)
}

// Publish sends payload to {topic}/{subtopic}.
func (p *Publisher) Publish(subtopic string, payload []byte) error {
	if !p.connected.Load() {
		return ErrNotConnected
	}

	topic := p.Topic(subtopic)
	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects with a short grace period for in-flight messages.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.connected.Store(false)
	p.logger.Info("mqtt disconnected")
}

// Topic joins root and subtopic with a single separator.
func Topic(root, subtopic string) string {
	if subtopic == "" {
		return root
	}
	return root + "/" + subtopic
}
