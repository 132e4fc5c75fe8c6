package accesscode

import "errors"

var (
	ErrCodeTooShort = errors.New("access code must be at least 5 characters")
)
