package student

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NormalizeKey убирает пробельные символы, дефисы и точки из бизнес-ключа.
func NormalizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '.' {
			return -1
		}
		return r
	}, key)
}

// NormalizeName приводит полное имя к нижнему регистру и схлопывает пробелы.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewHexID новый глобально уникальный hexId.
func NewHexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
