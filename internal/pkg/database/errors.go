package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
)

// Classify maps GORM errors onto the application taxonomy. Unknown errors are returned
// unchanged.
func Classify(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict(resource, err)
	default:
		return err
	}
}
