package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher sends a payload to a fixed topic.
type IPublisher interface {
	Publish(payload []byte) error
	Topic() string
}

type Publisher struct {
	client   paho.Client
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
}

// NewPublisher uses QoS 0; retained keeps the last payload for late subscribers.
func NewPublisher(client paho.Client, topic string, retained bool) *Publisher {
	return &Publisher{client: client, topic: topic, retained: retained, timeout: 5 * time.Second}
}

func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) Publish(payload []byte) error {
	token := p.client.Publish(p.topic, p.qos, p.retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout after %s", p.topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	return nil
}
