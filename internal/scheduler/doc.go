// Package scheduler реализует периодическую отправку workflow.
//
// Scheduler периодически проверяет расписания с истекшим next_due_at
// и отправляет их WorkflowRequest диспетчеру.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, processSchedule)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules:  scheduleRepo,
//	    Dispatcher: dispatcher,
//	    Logger:     logger,
//	})
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// Scheduler не реализует leader election самостоятельно — при
// нескольких экземплярах Tick() должен вызываться только лидером.
package scheduler
