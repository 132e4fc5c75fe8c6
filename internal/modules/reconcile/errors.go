package reconcile

import "errors"

var (
	// Validation failures. None of these touch the network.
	ErrCodeMismatch     = errors.New("registration code does not match")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")

	// ErrBanCheckUnavailable: the profile store could not answer the ban
	// check. Access is never granted on an unanswered check.
	ErrBanCheckUnavailable = errors.New("ban status could not be verified")
)
