package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	ch channel
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func NewRabbitPublisher(conn *amqp.Connection) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return &RabbitPublisher{ch: ch}, nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

// Publish sends body to the events exchange. Envelope fields are copied to
// the message properties; a body that is not an envelope is sent as is.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		AppId:        Producer,
		Body:         body,
	}
	if env, err := Parse(body); err == nil {
		msg.MessageId = env.EventID
		msg.CorrelationId = env.CorrelationID
		msg.Type = env.EventName
		msg.Timestamp = env.OccurredAt
	}

	return p.ch.PublishWithContext(pubCtx, EventsExchange, routingKey, false, false, msg)
}

// LogPublisher stands in for RabbitMQ when no broker is configured.
type LogPublisher struct {
	Logger logrus.FieldLogger
}

func (p LogPublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.Logger.WithFields(logrus.Fields{
		"exchange":    EventsExchange,
		"routing_key": routingKey,
		"bytes":       len(body),
	}).Info("event published to log")
	return nil
}
