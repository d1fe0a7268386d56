package service

import (
	"errors"
	"fmt"
)

// ErrValidation marks client errors: malformed input, out-of-order or
// out-of-chronology movement, missing split fields. Handlers map it to 400.
// Not-found errors reuse repository.ErrNotFound and map to 404. Everything
// else is a server error.
var ErrValidation = errors.New("validation error")

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
