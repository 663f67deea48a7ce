package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) Create(ctx context.Context, fr *response.FormResponse) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(fr).Error; err != nil {
		return fmt.Errorf("inserting form response: %w", err)
	}
	return nil
}

func (r *ResponseRepository) LatestByForm(ctx context.Context, formID uint) (*response.FormResponse, error) {
	var fr response.FormResponse
	err := conn(ctx, r.db).
		Preload("Responder").
		Preload("SupervisionDoctor").
		Where("form_id = ?", formID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Take(&fr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.ErrResponseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest response for form %d: %w", formID, err)
	}
	return &fr, nil
}

func (r *ResponseRepository) ExistsByForm(ctx context.Context, formID uint) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&response.FormResponse{}).Where("form_id = ?", formID).Limit(1).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking responses for form %d: %w", formID, err)
	}
	return n > 0, nil
}

func (r *ResponseRepository) ListByForm(ctx context.Context, formID uint) ([]*response.FormResponse, error) {
	var out []*response.FormResponse
	err := conn(ctx, r.db).
		Preload("Responder").
		Where("form_id = ?", formID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing responses for form %d: %w", formID, err)
	}
	return out, nil
}

func (r *ResponseRepository) DeleteByForm(ctx context.Context, formID uint) error {
	if err := conn(ctx, r.db).Where("form_id = ?", formID).Delete(&response.FormResponse{}).Error; err != nil {
		return fmt.Errorf("deleting responses of form %d: %w", formID, err)
	}
	return nil
}
