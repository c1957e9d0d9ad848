package infra

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

type RabbitMQConfig struct {
	URL string
}

type RabbitMQ struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
	mu         sync.Mutex // amqp.Channel 不可被多個 goroutine 同時 Publish
}

func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// 自動宣告所有隊列
	for _, queueName := range GetAllQueueNames() {
		_, err = ch.QueueDeclare(
			queueName.String(), // name
			true,               // durable
			false,              // delete when unused
			false,              // exclusive
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}

	return &RabbitMQ{
		Connection: conn,
		Channel:    ch,
	}, nil
}

// IsHealthy 連線是否仍然開啟
func (r *RabbitMQ) IsHealthy() bool {
	return r != nil && r.Connection != nil && !r.Connection.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Connection != nil {
		return r.Connection.Close()
	}
	return nil
}

func (r *RabbitMQ) PublishMessage(queueName QueueName, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Channel.Publish(
		"",                 // exchange
		queueName.String(), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}
