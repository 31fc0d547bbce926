package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hi-events/hi-events-api/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// RegistrationMessage is the JSON body published for every registration
// change.
type RegistrationMessage struct {
	RegistrationID string                    `json:"registrationId"`
	EventID        string                    `json:"eventId"`
	EventTitle     string                    `json:"eventTitle"`
	UserID         string                    `json:"userId"`
	UserEmail      string                    `json:"userEmail"`
	Status         models.RegistrationStatus `json:"status"`
	OccurredAt     time.Time                 `json:"occurredAt"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes registration changes to a topic exchange with the
// routing key "registration.<status>".
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
	logger   zerolog.Logger
}

func NewAMQPNotifier(url, exchange string, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		logger.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		logger.Error().Err(err).Msg("failed to declare exchange")
		return nil, err
	}

	logger.Info().Str("exchange", exchange).Msg("RabbitMQ initialized")
	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func RoutingKey(status models.RegistrationStatus) string {
	return "registration." + strings.ToLower(string(status))
}

func (n *AMQPNotifier) NotifyRegistration(user models.User, event models.Event, registration models.Registration) error {
	body, err := json.Marshal(RegistrationMessage{
		RegistrationID: registration.ID,
		EventID:        event.ID,
		EventTitle:     event.Title,
		UserID:         user.ID,
		UserEmail:      user.Email,
		Status:         registration.Status,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode registration message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	key := RoutingKey(registration.Status)
	err = n.channel.PublishWithContext(ctx, n.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    registration.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		n.logger.Error().Err(err).Str("routing_key", key).Msg("failed to publish message to RabbitMQ")
		return err
	}
	n.logger.Debug().Str("exchange", n.exchange).Str("routing_key", key).Msg("message published")
	return nil
}

func (n *AMQPNotifier) Close() error {
	if c, ok := n.channel.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
