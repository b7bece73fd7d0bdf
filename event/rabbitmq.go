package event

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"office-chat/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const RabbitMQActionHeader string = "x-action"

const (
	// QueueChat carries domain events published by this service.
	QueueChat = "chat"
	// QueueCommands carries commands addressed to this service.
	QueueCommands = "chat.commands"
)

// Event is one message taken from a queue.
type Event struct {
	Action string
	Data   []byte
}

type RabbitMQ struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	service    string
	log        *Log
	logger     *slog.Logger
}

func RabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		config.Config("RABBITMQ_USER"),
		config.Config("RABBITMQ_PASSWORD"),
		config.Config("RABBITMQ_HOST"),
		config.ConfigOr("RABBITMQ_PORT", "5672"),
	)
}

// RabbitMQConnect dials url, opens a channel and declares queues.
// Published events go to the service queue. eventLog may be nil.
func RabbitMQConnect(url string, service string, queues []string, eventLog *Log, logger *slog.Logger) (*RabbitMQ, error) {
	// Connect to RabbitMQ server
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logger.Info("connection opened to RabbitMQ server")

	// Open a RabbitMQ channel
	channel, err := connection.Channel()
	if err != nil {
		connection.Close()
		return nil, fmt.Errorf("failed to open a RabbitMQ channel: %w", err)
	}

	// Declare queues
	for _, name := range queues {
		if _, err := channel.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			connection.Close()
			return nil, fmt.Errorf("failed to declare RabbitMQ queue %s: %w", name, err)
		}
		logger.Info("declared RabbitMQ queue", "queue", name)
	}

	return &RabbitMQ{
		connection: connection,
		channel:    channel,
		service:    service,
		log:        eventLog,
		logger:     logger,
	}, nil
}

// Publish sends data as JSON to the service queue.
func (r *RabbitMQ) Publish(ctx context.Context, action string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", action, err)
	}
	return r.Emit(ctx, r.service, action, body, true)
}

func (r *RabbitMQ) Emit(ctx context.Context, service string, action string, data []byte, logged bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.channel.PublishWithContext(
		ctx,
		"",      // exchange
		service, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers: amqp.Table{
				RabbitMQActionHeader: action,
			},
			Body: data,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", action, service, err)
	}

	if logged {
		r.writeLog(false, service, action, data)
	}
	return nil
}

// Subscribe consumes queue. The returned channel closes with the connection.
func (r *RabbitMQ) Subscribe(queue string) (<-chan Event, error) {
	msgs, err := r.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer on %s: %w", queue, err)
	}
	r.logger.Info("subscribed to RabbitMQ queue", "queue", queue)

	events := make(chan Event)
	go func() {
		defer close(events)
		for msg := range msgs {
			action, _ := msg.Headers[RabbitMQActionHeader].(string)
			r.writeLog(true, queue, action, msg.Body)

			msg.Ack(false)

			events <- Event{Action: action, Data: msg.Body}
		}
	}()
	return events, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		r.logger.Warn("closing RabbitMQ channel", "error", err)
	}
	return r.connection.Close()
}

// Replay republishes every entry of an outbound event log without logging it again.
func (r *RabbitMQ) Replay(ctx context.Context, outLog io.Reader) (int, error) {
	n := 0
	err := ReadLog(outLog, func(e Entry) error {
		if err := r.Emit(ctx, e.Service, e.Action, []byte(e.Data), false); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func (r *RabbitMQ) writeLog(inbound bool, service, action string, data []byte) {
	if r.log == nil {
		return
	}
	entry := Entry{
		Time:    time.Now().UnixMicro(),
		Service: service,
		Action:  action,
		Data:    string(data),
	}

	var err error
	if inbound {
		err = r.log.In(entry)
	} else {
		err = r.log.Out(entry)
	}
	if err != nil {
		r.logger.Warn("event log write failed", "error", err)
	}
}

// Nop drops every event. It stands in when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
