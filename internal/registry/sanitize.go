package registry

import (
	"strings"
	"unicode"
)

// Sanitize удаляет управляющие символы и символы разметки и обрезает пробелы по краям.
//
// Остальные символы (включая '\\', '.', ':') сохраняются: идентификаторы
// сравниваются как есть.
func Sanitize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || isMarkup(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

func isMarkup(r rune) bool {
	switch r {
	case '<', '>', '"', '\'', '&', '`':
		return true
	default:
		return false
	}
}
