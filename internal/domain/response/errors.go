package response

import "errors"

var (
	ErrResponseNotFound = errors.New("form response not found")
	ErrInvalidType      = errors.New("invalid response type")
	ErrInvalidUrgency   = errors.New("invalid urgency level")
)
