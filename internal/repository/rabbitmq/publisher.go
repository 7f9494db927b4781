package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// messageType tags prediction events so consumers sharing the exchange can
// route on more than the binding key.
const messageType = "rul.prediction"

// RabbitPublisher emits PredictionMade events to the predictions exchange.
type RabbitPublisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewRabbitPublisher(conn *amqp.Connection, exchange, routingKey string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &RabbitPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// Publish sends one prediction event. messageID is the prediction request id,
// carried as the AMQP message id so consumers can deduplicate redeliveries.
func (p *RabbitPublisher) Publish(ctx context.Context, messageID string, body json.RawMessage) error {
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   messageID,
			Type:        messageType,
			Timestamp:   time.Now().UTC(),
			Body:        body,
		},
	)
}
