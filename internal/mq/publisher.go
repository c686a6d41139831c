package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeWorkflowSubmitted MessageType = "workflow.submitted"
	MessageTypeTaskReady         MessageType = "task.ready"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowSubmittedPayload — payload для события принятия workflow.
type WorkflowSubmittedPayload struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
}

// TaskReadyPayload — payload для сообщения о готовой задаче.
type TaskReadyPayload struct {
	TaskID     uuid.UUID `json:"task_id"`
	WorkflowID uuid.UUID `json:"workflow_id"`
	Operator   string    `json:"operator"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange ExchangeName, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishWorkflowSubmitted публикует событие о принятом workflow.
func (p *Publisher) PublishWorkflowSubmitted(ctx context.Context, workflowID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeWorkflowSubmitted,
		Payload:   WorkflowSubmittedPayload{WorkflowID: workflowID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeWorkflows, RoutingKeySubmitted, msg)
}

// PublishTaskReady публикует событие о задаче, готовой к выполнению.
// Потребитель: Worker.
func (p *Publisher) PublishTaskReady(ctx context.Context, taskID, workflowID uuid.UUID, operator string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTaskReady,
		Payload:   TaskReadyPayload{TaskID: taskID, WorkflowID: workflowID, Operator: operator},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeTasks, RoutingKeyReady, msg)
}
