package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
)

var (
	ErrUnauthenticated        = errors.New("unauthenticated: no resolvable user")
	ErrForbidden              = errors.New("forbidden: insufficient permissions")
	ErrNoNeurologistAvailable = errors.New("no active neurologist available for assignment")
	ErrAlreadyClaimed         = errors.New("form has already been picked up by another neurologist")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// validationErrors collects field problems and yields nil when there are none.
type validationErrors []string

func (v *validationErrors) add(msg string) {
	*v = append(*v, msg)
}

func (v validationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

type AuditEntry struct {
	UserID       uint
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      map[string]any
}
