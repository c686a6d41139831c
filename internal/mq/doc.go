// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - workflow.submitted — принят новый workflow
//   - task.ready         — задача готова к выполнению
//
// Exchanges:
//   - scena.workflows — события workflow
//   - scena.tasks     — события задач
//   - scena.dlq       — dead letter queue
package mq
