package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) GetByID(ctx context.Context, id uint) (*patient.Patient, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *PatientRepository) GetByCIN(ctx context.Context, cin string) (*patient.Patient, error) {
	return r.take(ctx, "cin = ?", strings.TrimSpace(cin))
}

func (r *PatientRepository) take(ctx context.Context, query string, args ...any) (*patient.Patient, error) {
	var p patient.Patient
	err := conn(ctx, r.db).Where(query, args...).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("saving patient %s: %w", p.CIN, err)
	}
	return nil
}
