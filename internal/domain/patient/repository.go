package patient

import "context"

type Repository interface {
	// GetByID returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uint) (*Patient, error)

	// GetByCIN returns ErrPatientNotFound if no patient carries the CIN.
	GetByCIN(ctx context.Context, cin string) (*Patient, error)

	// Save inserts a new patient or updates an existing one.
	Save(ctx context.Context, p *Patient) error
}
