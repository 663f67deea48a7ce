package domain

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("a user with this email or CIN already exists")
	ErrUserAlreadyActive = errors.New("user account is already active")
	ErrInvalidRole       = errors.New("invalid role")
)
