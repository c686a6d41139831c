package catalog

import "errors"

// Ошибки каталога операторов.
var (
	// ErrOpNotFound — оператор с таким идентификатором не зарегистрирован.
	ErrOpNotFound = errors.New("operator not found")

	// ErrOpExists — оператор с таким идентификатором уже зарегистрирован.
	ErrOpExists = errors.New("operator already exists")
)
