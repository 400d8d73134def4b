package student

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("student not found")
	ErrInvalidData       = errors.New("invalid student data")
	ErrMissingKey        = errors.New("student has no Documento")
	ErrUnknownCollection = errors.New("unknown collection")
)
