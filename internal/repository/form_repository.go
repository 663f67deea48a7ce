package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FormRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

func (r *FormRepository) withAssociations(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Preload("Patient").
		Preload("Doctor").
		Preload("AssignedTo").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *FormRepository) Create(ctx context.Context, f *form.MedicalForm) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(f).Error; err != nil {
		return fmt.Errorf("inserting medical form: %w", err)
	}
	return nil
}

func (r *FormRepository) GetByID(ctx context.Context, id uint) (*form.MedicalForm, error) {
	var f form.MedicalForm
	err := r.withAssociations(ctx).Where("id = ?", id).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, form.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying medical form %d: %w", id, err)
	}
	return &f, nil
}

func (r *FormRepository) LatestByPatient(ctx context.Context, patientID uint) (*form.MedicalForm, error) {
	var f form.MedicalForm
	err := conn(ctx, r.db).
		Where("patient_id = ?", patientID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, form.ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest form for patient %d: %w", patientID, err)
	}
	return &f, nil
}

func (r *FormRepository) List(ctx context.Context, q form.ListQuery) ([]*form.MedicalForm, error) {
	db := r.withAssociations(ctx).Model(&form.MedicalForm{})

	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.AssignedToID != nil {
		db = db.Where("assigned_to_id = ?", *q.AssignedToID)
	}
	if q.Unassigned {
		db = db.Where("assigned_to_id IS NULL")
	}
	if len(q.Statuses) > 0 {
		db = db.Where("status IN ?", q.Statuses)
	}
	if q.ExcludeStatus != "" {
		db = db.Where("status <> ?", q.ExcludeStatus)
	}
	if q.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *q.CreatedAfter)
	}
	if q.PDFMissingOnly {
		db = db.Where("pdf_generated = ?", false)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var forms []*form.MedicalForm
	if err := db.Order("created_at DESC, id DESC").Find(&forms).Error; err != nil {
		return nil, fmt.Errorf("listing medical forms: %w", err)
	}
	return forms, nil
}

type workloadRow struct {
	AssignedToID uint
	Count        int64
}

func (r *FormRepository) CountSubmittedByAssignee(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []workloadRow
	err := conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Select("assigned_to_id, COUNT(*) AS count").
		Where("status = ? AND assigned_to_id IN ?", form.StatusSubmitted, userIDs).
		Group("assigned_to_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting workload: %w", err)
	}

	for _, row := range rows {
		counts[row.AssignedToID] = row.Count
	}
	return counts, nil
}

func (r *FormRepository) UpdateStatus(ctx context.Context, id uint, s form.Status) error {
	res := conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": s, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("updating status of form %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return form.ErrFormNotFound
	}
	return nil
}

func (r *FormRepository) UpdateStatusIfAssigned(ctx context.Context, id, assigneeID uint, s form.Status) (bool, error) {
	res := conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Where("id = ? AND assigned_to_id = ?", id, assigneeID).
		Updates(map[string]any{"status": s, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("updating status of form %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClaimUnassigned relies on the row lock taken by UPDATE: of two concurrent
// claims the second re-evaluates the predicate after the first commits and
// matches no row.
func (r *FormRepository) ClaimUnassigned(ctx context.Context, id, neurologistID uint) (bool, error) {
	res := conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Where("id = ? AND assigned_to_id IS NULL AND status = ?", id, form.StatusSubmitted).
		Updates(map[string]any{"assigned_to_id": neurologistID, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("claiming form %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *FormRepository) Reassign(ctx context.Context, id, neurologistID uint) error {
	res := conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Where("id = ?", id).
		Updates(map[string]any{"assigned_to_id": neurologistID, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("reassigning form %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return form.ErrFormNotFound
	}
	return nil
}

func (r *FormRepository) ReleaseSubmitted(ctx context.Context, neurologistID uint) (int64, error) {
	res := conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Where("assigned_to_id = ? AND status = ?", neurologistID, form.StatusSubmitted).
		Updates(map[string]any{"assigned_to_id": nil, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("releasing forms of user %d: %w", neurologistID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *FormRepository) MarkPDFGenerated(ctx context.Context, id uint, fileName, path string, at time.Time) error {
	return conn(ctx, r.db).
		Model(&form.MedicalForm{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pdf_generated":    true,
			"pdf_generated_at": at,
			"pdf_file_name":    fileName,
			"pdf_file_path":    path,
		}).Error
}

func (r *FormRepository) Delete(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Delete(&form.MedicalForm{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting form %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return form.ErrFormNotFound
	}
	return nil
}

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *form.FileAttachment) error {
	if err := conn(ctx, r.db).Create(a).Error; err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id uint) (*form.FileAttachment, error) {
	var a form.FileAttachment
	err := conn(ctx, r.db).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, form.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying attachment %d: %w", id, err)
	}
	return &a, nil
}

func (r *AttachmentRepository) ListByForm(ctx context.Context, formID uint) ([]*form.FileAttachment, error) {
	var out []*form.FileAttachment
	if err := conn(ctx, r.db).Where("form_id = ?", formID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing attachments of form %d: %w", formID, err)
	}
	return out, nil
}

func (r *AttachmentRepository) DeleteByForm(ctx context.Context, formID uint) error {
	if err := conn(ctx, r.db).Where("form_id = ?", formID).Delete(&form.FileAttachment{}).Error; err != nil {
		return fmt.Errorf("deleting attachments of form %d: %w", formID, err)
	}
	return nil
}
