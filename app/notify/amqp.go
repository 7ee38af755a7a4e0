package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes notification events to a topic exchange instead of
// calling the messaging service directly. Used in deployments where a
// separate email consumer drains the queue.
type AMQPNotifier struct {
	ch       *amqp.Channel
	exchange string
}

func NewAMQPNotifier(ch *amqp.Channel, exchange string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, exchange: exchange}
}

type amqpEvent struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Link      string `json:"link,omitempty"`
	Code      string `json:"code,omitempty"`
}

func (n *AMQPNotifier) SendVerification(ctx context.Context, recipient, name, link string) error {
	return n.publish(ctx, "email.verification", amqpEvent{
		Type: "email_verification", Recipient: recipient, Name: name, Link: link,
	})
}

func (n *AMQPNotifier) SendWelcome(ctx context.Context, recipient, name, link string) error {
	return n.publish(ctx, "email.welcome", amqpEvent{
		Type: "welcome", Recipient: recipient, Name: name, Link: link,
	})
}

func (n *AMQPNotifier) SendPasswordReset(ctx context.Context, recipient, name, link string) error {
	return n.publish(ctx, "email.password_reset", amqpEvent{
		Type: "password_reset", Recipient: recipient, Name: name, Link: link,
	})
}

func (n *AMQPNotifier) SendTwoFactorCode(ctx context.Context, recipient, name, code string) error {
	return n.publish(ctx, "email.two_factor", amqpEvent{
		Type: "two_factor_code", Recipient: recipient, Name: name, Code: code,
	})
}

func (n *AMQPNotifier) publish(ctx context.Context, routingKey string, event amqpEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return n.ch.PublishWithContext(
		ctx,
		n.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
