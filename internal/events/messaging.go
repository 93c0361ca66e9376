package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange                 = "urbandrive.events"
	ReservationConfirmedRoutingKey = "reservation.confirmed.v1"
	CheckoutCompensatedRoutingKey  = "checkout.compensated.v1"

	Producer     = "urbandrive-web"
	schemaPrefix = "urbandrive/"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
