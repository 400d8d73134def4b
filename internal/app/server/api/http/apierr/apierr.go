package apierr

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"tejanitos/internal/domain/student"
)

// From переводит ошибку домена в HTTP-ошибку huma.
func From(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, student.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, student.ErrMissingKey), errors.Is(err, student.ErrInvalidData):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
