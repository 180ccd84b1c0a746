package bus

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var _ Bus = &Client{}

// Client is a thin wrapper around the paho MQTT client. All traffic uses
// QoS 0: the bus is best-effort and every periodic component re-attempts its
// work on the next tick anyway.
type Client struct {
	mqtt   mqtt.Client
	logger *slog.Logger
}

// NewClient configures an MQTT client for the broker at url. Call Connect
// before use.
func NewClient(url, clientID string, logger *slog.Logger) *Client {
	opts := mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("connection lost", "err", err)
	}
	opts.OnConnect = func(_ mqtt.Client) {
		logger.Info("connected", "url", url, "client_id", clientID)
	}
	return &Client{mqtt: mqtt.NewClient(opts), logger: logger}
}

// Connect establishes the broker connection, waiting up to timeout.
func (c *Client) Connect(timeout time.Duration) error {
	token := c.mqtt.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("connect: no response from broker within %s", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect flushes and closes the broker connection.
func (c *Client) Disconnect() {
	c.mqtt.Disconnect(250)
}

func (c *Client) Publish(topic, payload string) error {
	token := c.mqtt.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	c.logger.Debug("published", "topic", topic, "payload", payload)
	return nil
}

func (c *Client) Subscribe(topic string, handler HandlerFunc) error {
	token := c.mqtt.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		handler(m.Topic(), string(m.Payload()))
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	c.logger.Debug("subscribed", "topic", topic)
	return nil
}
