// Package mqttclient wraps a single autopaho connection manager shared
// across the process: the twin service publishes desired config and the
// ingestion gateway and registration handler subscribe, all through one
// client per §5's shared-resource policy.
package mqttclient

import (
	"context"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
)

// Handler processes one inbound message. It returns nothing, and the message
// is acknowledged whatever it does (QoS 1 messages are ACKed regardless, per
// §4.G: redelivery of a message that already failed validation would not
// help).
type Handler func(topic string, payload []byte)

// Client owns the autopaho connection manager and the topic→handler
// routing table registered before Start.
type Client struct {
	cfg      Config
	cm       *autopaho.ConnectionManager
	log      *logging.Logger
	handlers map[string]Handler
	subs     []subscription
}

type subscription struct {
	topic   string
	qos     byte
	handler Handler
}

// Config carries the broker connection parameters.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	KeepAlive uint16
}

// New constructs a Client. Call Start to connect.
func New(cfg Config, log *logging.Logger) *Client {
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 30
	}
	return &Client{cfg: cfg, log: log.WithComponent("mqttclient"), handlers: map[string]Handler{}}
}

// Subscribe registers a handler for topic (which may contain MQTT
// wildcards). Must be called before Start; on every connect and reconnect
// the OnConnectionUp callback set in Start subscribes each registered topic
// again.
func (c *Client) Subscribe(topic string, qos byte, handler Handler) {
	c.subs = append(c.subs, subscription{topic: topic, qos: qos, handler: handler})
}

// Start connects to the broker with exponential-backoff reconnection
// (autopaho's default behavior). It waits up to 30 seconds for the first
// connection and then returns; reconnection continues in the background
// until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(c.cfg.BrokerURL)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "parsing mqtt broker url")
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       c.cfg.KeepAlive,
		ConnectUsername: c.cfg.Username,
		ConnectPassword: []byte(c.cfg.Password),
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			c.log.Info("mqtt connected", "broker", c.cfg.BrokerURL)
			subCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for _, sub := range c.subs {
				if _, err := cm.Subscribe(subCtx, &paho.Subscribe{
					Subscriptions: []paho.SubscribeOptions{{Topic: sub.topic, QoS: sub.qos}},
				}); err != nil {
					c.log.Warn("mqtt resubscribe failed", "topic", sub.topic, "error", err)
				}
			}
		},
		OnConnectError: func(err error) {
			c.log.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
		},
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "connecting to mqtt broker")
	}
	c.cm = cm

	cm.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		topic := pr.Packet.Topic
		for _, sub := range c.subs {
			if topicMatches(sub.topic, topic) {
				sub.handler(topic, pr.Packet.Payload)
			}
		}
		return true, nil
	})

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		c.log.Warn("mqtt initial connection timed out, retrying in background", "error", err)
	}
	return nil
}

// Publish sends a message, optionally retained, used by the twin service
// for the canonical desired-config delivery mechanism.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	if c.cm == nil {
		return errors.New(errors.KindUnavailable, "mqtt client not connected")
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     qos,
		Retain:  retain,
	})
	if err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "publishing mqtt message")
	}
	return nil
}

// Disconnect tears down the connection cleanly during shutdown.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.cm == nil {
		return nil
	}
	return c.cm.Disconnect(ctx)
}

// topicMatches implements MQTT wildcard matching for '+' (single level)
// and '#' (multi level, must be final).
func topicMatches(filter, topic string) bool {
	fParts := splitTopic(filter)
	tParts := splitTopic(topic)

	for i, fp := range fParts {
		if fp == "#" {
			return true
		}
		if i >= len(tParts) {
			return false
		}
		if fp != "+" && fp != tParts[i] {
			return false
		}
	}
	return len(fParts) == len(tParts)
}

func splitTopic(topic string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			parts = append(parts, topic[start:i])
			start = i + 1
		}
	}
	parts = append(parts, topic[start:])
	return parts
}
