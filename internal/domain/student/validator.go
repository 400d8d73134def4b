package student

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate проверяет обязательное ядро записи.
func (s Student) Validate() error {
	if s.Key() == "" {
		return ErrMissingKey
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// ValidateAll делит записи на корректные и количество отброшенных.
func ValidateAll(records []Student) ([]Student, int) {
	valid := make([]Student, 0, len(records))
	dropped := 0
	for _, r := range records {
		if r.Validate() != nil {
			dropped++
			continue
		}
		valid = append(valid, r)
	}
	return valid, dropped
}
