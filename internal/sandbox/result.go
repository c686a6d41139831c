package sandbox

// ExecResult — итог выполнения серии команд в контейнерах.
//
// Инфраструктурные сбои (недоступный демон, ошибка создания контейнера)
// не всплывают как ошибки вызова: они поглощаются в ReturnCode = 1 с
// текстом сбоя в Logs, а исходная ошибка сохраняется в Err.
type ExecResult struct {
	// ReturnCode — код завершения: 0 при успехе всех команд, иначе
	// код первой провалившейся команды или 1 при инфраструктурном сбое.
	ReturnCode int

	// Logs — объединённый вывод контейнеров, по записи на команду.
	// При сбое последним элементом идёт описание сбоя.
	Logs []string

	// Err — инфраструктурная ошибка, если она была. Ненулевой код
	// завершения команды ошибкой не считается.
	Err error
}

// Success возвращает true, если все команды завершились успешно.
func (r *ExecResult) Success() bool {
	return r.ReturnCode == 0 && r.Err == nil
}
