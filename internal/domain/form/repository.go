package form

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, f *MedicalForm) error

	// GetByID loads the form with patient, doctor, assignee and attachments.
	// Returns ErrFormNotFound if not found.
	GetByID(ctx context.Context, id uint) (*MedicalForm, error)

	// LatestByPatient returns the patient's most recently created form.
	LatestByPatient(ctx context.Context, patientID uint) (*MedicalForm, error)

	List(ctx context.Context, q ListQuery) ([]*MedicalForm, error)

	// CountSubmittedByAssignee returns SUBMITTED form counts keyed by assignee.
	// Users with no such forms are absent from the map.
	CountSubmittedByAssignee(ctx context.Context, userIDs []uint) (map[uint]int64, error)

	UpdateStatus(ctx context.Context, id uint, s Status) error

	// UpdateStatusIfAssigned sets the status only while the form is still
	// assigned to assigneeID. It reports false when the form has moved on.
	UpdateStatusIfAssigned(ctx context.Context, id, assigneeID uint, s Status) (bool, error)

	// ClaimUnassigned sets the assignee only while the form is SUBMITTED and
	// unassigned. It reports false when another writer got there first.
	ClaimUnassigned(ctx context.Context, id, neurologistID uint) (bool, error)

	Reassign(ctx context.Context, id, neurologistID uint) error

	// ReleaseSubmitted clears the assignee on the user's SUBMITTED forms.
	ReleaseSubmitted(ctx context.Context, neurologistID uint) (int64, error)

	MarkPDFGenerated(ctx context.Context, id uint, fileName, path string, at time.Time) error

	Delete(ctx context.Context, id uint) error
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *FileAttachment) error
	GetByID(ctx context.Context, id uint) (*FileAttachment, error)
	ListByForm(ctx context.Context, formID uint) ([]*FileAttachment, error)
	DeleteByForm(ctx context.Context, formID uint) error
}
