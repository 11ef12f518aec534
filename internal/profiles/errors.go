package profiles

import "errors"

var (
	ErrNotFound     = errors.New("profile not found")
	ErrInvalidInput = errors.New("invalid profile")
)
