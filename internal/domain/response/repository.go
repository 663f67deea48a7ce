package response

import "context"

type Repository interface {
	Create(ctx context.Context, r *FormResponse) error

	// LatestByForm returns the most recently created response for the form,
	// or ErrResponseNotFound.
	LatestByForm(ctx context.Context, formID uint) (*FormResponse, error)

	ExistsByForm(ctx context.Context, formID uint) (bool, error)

	ListByForm(ctx context.Context, formID uint) ([]*FormResponse, error)

	DeleteByForm(ctx context.Context, formID uint) error
}
