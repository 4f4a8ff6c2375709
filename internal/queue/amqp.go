package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"
)

// AMQPPublisher pushes delivery signals onto a durable RabbitMQ queue.
// The transport provider's callback bridge publishes here; cmd/worker
// consumes on the other side.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue amqp.Queue
}

func DialAMQPPublisher(url, queueName string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: q}, nil
}

func (p *AMQPPublisher) PublishSignal(sig DeliverySignal) error {
	body, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return p.ch.Publish(
		"",
		p.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() {
	p.ch.Close()
	p.conn.Close()
}
