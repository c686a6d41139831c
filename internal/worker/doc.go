// Package worker выполняет отдельные задачи workflow.
//
// # Обзор
//
// Worker — stateless компонент системы Scena, который выполняет
// задачи, созданные диспетчером. Worker отвечает за:
//
//   - Получение задач из очереди RabbitMQ (event-driven)
//   - Периодическую проверку PENDING задач в БД (polling fallback)
//   - Исполнение оператора задачи в контейнере через универсальный
//     исполнитель
//   - Запись результата задачи в БД
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди tasks.ready.
//
// # Обработка задачи
//
//  1. Получение задачи (из очереди или polling)
//  2. Загрузка задачи из БД, проверка статуса PENDING
//  3. Проверка, не отозван ли workflow
//  4. Перевод в RUNNING
//  5. Исполнение оператора (executor.Execute)
//  6. Успех → MarkDone с местоположениями файлов
//  7. Ошибка → MarkFailed со склеенными логами контейнера
//
// Повторная доставка события для задачи не в статусе PENDING
// подтверждается без обработки: задачу уже взял другой воркер.
package worker
