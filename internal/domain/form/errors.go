package form

import "errors"

var (
	ErrFormNotFound       = errors.New("medical form not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrInvalidFrequency   = errors.New("invalid seizure frequency")
	ErrInvalidFilter      = errors.New("invalid form filter")
)
