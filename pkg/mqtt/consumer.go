package mqtt

import (
	"context"
	"fmt"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Handler receives the raw payload of one message.
type Handler func(topic string, payload []byte) error

type Consumer struct {
	client  paho.Client
	topic   string
	handler Handler
	log     *log.Logger
}

func NewConsumer(client paho.Client, topic string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Default()
	}
	return &Consumer{client: client, topic: topic, log: logger}
}

func (c *Consumer) SetHandler(h Handler) { c.handler = h }

// Consume subscribes and blocks until ctx is cancelled, then unsubscribes.
func (c *Consumer) Consume(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, 1, func(_ paho.Client, msg paho.Message) {
		if c.handler == nil {
			c.log.Printf("mqtt: no handler for %s", c.topic)
			return
		}
		if err := c.handler(msg.Topic(), msg.Payload()); err != nil {
			c.log.Printf("mqtt: handling message on %s: %v", c.topic, err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, token.Error())
	}
	c.log.Printf("mqtt: subscribed to %s", c.topic)

	<-ctx.Done()
	if c.client.IsConnected() {
		c.client.Unsubscribe(c.topic).Wait()
	}
	return nil
}
