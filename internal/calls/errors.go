package calls

import "errors"

var (
	ErrNotFound         = errors.New("call not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedAudio = errors.New("unsupported audio format")
)
