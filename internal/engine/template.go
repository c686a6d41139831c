package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlaceholder — в шаблоне встретилась подстановка,
// для которой нет значения.
var ErrUnknownPlaceholder = errors.New("unknown placeholder")

// Substitute подставляет значения values в шаблон командной строки.
// Подстановки записываются как $name или ${name}; $$ экранирует
// литеральный знак доллара. Имя — буквы, цифры и подчёркивания,
// начинается с буквы или подчёркивания.
func Substitute(template string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(template) {
			return "", fmt.Errorf("dangling $ at end of %q", template)
		}

		next := template[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i += 2
		case next == '{':
			end := strings.IndexByte(template[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated ${ in %q", template)
			}
			name := template[i+2 : i+2+end]
			value, ok := values[name]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnknownPlaceholder, name)
			}
			b.WriteString(value)
			i += 2 + end + 1
		case isNameStart(next):
			j := i + 1
			for j < len(template) && isNameChar(template[j]) {
				j++
			}
			name := template[i+1 : j]
			value, ok := values[name]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnknownPlaceholder, name)
			}
			b.WriteString(value)
			i = j
		default:
			return "", fmt.Errorf("invalid placeholder after $ in %q", template)
		}
	}
	return b.String(), nil
}

// SubstituteAll подставляет значения в каждую команду списка.
func SubstituteAll(templates []string, values map[string]string) ([]string, error) {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		s, err := Substitute(t, values)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}
