package engine

import (
	"errors"
	"fmt"
	"strconv"
)

// Ошибки подготовки параметров.
var (
	// ErrTypeCoercion — значение параметра не приводится к объявленному типу.
	ErrTypeCoercion = errors.New("parameter type coercion failed")

	// ErrUnknownType — объявлен неизвестный тип параметра.
	ErrUnknownType = errors.New("unknown parameter type")
)

// CoerceParameter приводит значение value к объявленному типу typ
// ("str", "int" или "float") и возвращает строковое представление для
// подстановки в команды. Если value == nil, используется def; если и
// def == nil, возвращается пустая строка.
func CoerceParameter(typ string, value, def any) (string, error) {
	if value == nil {
		value = def
	}
	if value == nil {
		return "", nil
	}

	switch typ {
	case "str", "":
		return coerceString(value), nil
	case "int":
		return coerceInt(value)
	case "float":
		return coerceFloat(value)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceInt(value any) (string, error) {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v != float64(int64(v)) {
			return "", fmt.Errorf("%w: %v is not an integer", ErrTypeCoercion, v)
		}
		return strconv.FormatInt(int64(v), 10), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q as int", ErrTypeCoercion, v)
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("%w: %T as int", ErrTypeCoercion, value)
	}
}

func coerceFloat(value any) (string, error) {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case int:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case int64:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q as float", ErrTypeCoercion, v)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T as float", ErrTypeCoercion, value)
	}
}
