package service

import "errors"

var (
	// ErrLocationUnknown means the buyer has no recorded position on the instance.
	ErrLocationUnknown = errors.New("player location unknown")
	// ErrResourceParse means a remote JSON document could not be decoded or validated.
	ErrResourceParse = errors.New("remote resource unparsable")
	// ErrInstanceNotFound is returned for an unknown instance id.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrInvalidInput wraps validation failures of caller-supplied data.
	ErrInvalidInput = errors.New("invalid input")

	errNoLogFile        = errors.New("no admin log file found")
	errNoGameplayConfig = errors.New("gameplay config path not set")
)
