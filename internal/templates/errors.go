package templates

import "errors"

var (
	ErrNotFound        = errors.New("template not found")
	ErrForbidden       = errors.New("system templates cannot be deleted")
	ErrInvalidCategory = errors.New("invalid template category")
	ErrInvalidInput    = errors.New("invalid template")
)
