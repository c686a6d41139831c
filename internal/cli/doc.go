// Package cli реализует инструмент командной строки Scena.
//
// # Обзор
//
// CLI — утилита для управления каталогом операторов, отправки
// workflow и работы с расписаниями. CLI подключается напрямую к
// базе данных и (опционально) к RabbitMQ — отдельного API-сервера
// в системе нет.
//
// # Ключевые компоненты
//
// ## App
//
// Связка зависимостей CLI: репозитории, диспетчер, каталог, монитор.
// Создаётся лениво после парсинга PersistentFlags — команды получают
// замыкание appFn и вызывают его только при выполнении.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: scena workflow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - register: регистрация операторов из каталога с манифестом
//   - op: list
//   - submit: отправка workflow из YAML-файла, опционально с ожиданием
//   - workflow: list, show, revoke
//   - schedule: list, create, delete
package cli
