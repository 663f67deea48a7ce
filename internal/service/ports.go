package service

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/storage"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByCIN(ctx context.Context, cin string) (*domain.User, error)
	ListByRoles(ctx context.Context, roles []domain.Role, active bool) ([]*domain.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
	RecordLoginSuccess(ctx context.Context, id uint, at time.Time) error
	RecordLoginFailure(ctx context.Context, id uint, lockUntil *time.Time) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

// Transactor runs fn in a database transaction. Stores called with the
// context handed to fn take part in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AttachmentStore interface {
	Store(ctx context.Context, data []byte, meta storage.Metadata) (string, error)
	Retrieve(ctx context.Context, ref string) ([]byte, error)
	Remove(ctx context.Context, ref string) error
	Encrypted() bool
}

// DocumentStore keeps generated PDFs.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type PDFRenderer interface {
	Render(f *form.MedicalForm) ([]byte, error)
	FileName(f *form.MedicalForm) string
}
