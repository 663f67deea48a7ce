package patient

import "errors"

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidGender   = errors.New("invalid gender value")
	ErrCINRequired     = errors.New("patient CIN is required")
)
