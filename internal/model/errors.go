package model

import "errors"

var (
	// ErrRequestFailed covers network errors, non-2xx statuses and malformed bodies.
	ErrRequestFailed = errors.New("request failed")
	// ErrEmptyInput is returned by local validation, before any network call.
	ErrEmptyInput = errors.New("empty input")
	// ErrMissingField marks an expected response key that was not there. It means "no data".
	ErrMissingField = errors.New("missing field")
)
