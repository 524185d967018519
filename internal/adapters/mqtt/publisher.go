// Package mqtt publishes domain events to an MQTT broker for Home Assistant.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

const publishTimeout = 5 * time.Second

// Client is the slice of the paho client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends each event as JSON to <prefix>/<event type>.
type Publisher struct {
	cli    Client
	prefix string
}

// NewPublisher wraps an already connected client.
func NewPublisher(cli Client, prefix string) *Publisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "bluespeak"
	}
	return &Publisher{cli: cli, prefix: prefix}
}

// Dial connects to brokerURL (mqtt://, tcp://, ssl://, ws://) and returns a publisher.
func Dial(brokerURL, clientID, prefix string) (*Publisher, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}

	server := u.Host
	switch u.Scheme {
	case "mqtt", "tcp", "":
		server = "tcp://" + server
	case "ssl", "tls", "mqtts":
		server = "ssl://" + server
	case "ws", "wss":
		server = u.Scheme + "://" + server + u.Path
	default:
		return nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}

	if clientID == "" {
		clientID = "bluespeak-" + time.Now().Format("150405.000")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(paho.Client) { slog.Info("MQTT connected", "broker", u.Host) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { slog.Error("MQTT connection lost", "error", err) }
	if u.User != nil {
		pw, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(pw)
	}

	cli := paho.NewClient(opts)
	t := cli.Connect()
	if !t.WaitTimeout(15*time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", u.Host)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return NewPublisher(cli, prefix), nil
}

// Topic returns the topic an event type is published to.
func (p *Publisher) Topic(eventType string) string {
	return p.prefix + "/" + eventType
}

// Publish implements ports.EventPublisher. Failures are logged, never returned.
func (p *Publisher) Publish(_ context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("MQTT marshal failed", "type", event.Type, "error", err)
		return
	}
	topic := p.Topic(event.Type)
	t := p.cli.Publish(topic, 0, false, payload)
	go func() {
		if !t.WaitTimeout(publishTimeout) {
			slog.Warn("MQTT publish timed out", "topic", topic)
			return
		}
		if err := t.Error(); err != nil {
			slog.Warn("MQTT publish failed", "topic", topic, "error", err)
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}
