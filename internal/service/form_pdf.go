package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/storage"
	"go.uber.org/zap"
)

const pdfPrefix = "pdfs/"

// generatePDF renders the form, stores the document and records its
// location on the form.
func (s *FormService) generatePDF(ctx context.Context, f *form.MedicalForm) ([]byte, string, error) {
	data, err := s.Renderer.Render(f)
	if err != nil {
		return nil, "", fmt.Errorf("rendering pdf: %w", err)
	}
	name := s.Renderer.FileName(f)
	key := pdfPrefix + name

	if err := s.Documents.Put(ctx, key, data, "application/pdf"); err != nil {
		return nil, "", fmt.Errorf("storing pdf: %w", err)
	}
	at := s.now().UTC()
	if err := s.Forms.MarkPDFGenerated(ctx, f.ID, name, key, at); err != nil {
		return nil, "", fmt.Errorf("recording pdf: %w", err)
	}

	f.PDFGenerated = true
	f.PDFGeneratedAt = &at
	f.PDFFileName = name
	f.PDFFilePath = key
	s.Metrics.PDFsGeneratedTotal.Inc()
	s.log.Debug("form pdf generated", zap.Uint("form_id", f.ID), zap.String("file", name))
	return data, name, nil
}

// PDF returns the form's document, rendering it first when it was never
// produced or its file has gone missing.
func (s *FormService) PDF(ctx context.Context, caller *domain.User, id uint) ([]byte, string, error) {
	f, _, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, "", err
	}

	if f.PDFGenerated && f.PDFFilePath != "" {
		data, err := s.Documents.Get(ctx, f.PDFFilePath)
		if err == nil {
			return data, f.PDFFileName, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Error("failed to read form pdf", zap.Error(err), zap.Uint("form_id", id))
			return nil, "", fmt.Errorf("reading pdf: %w", err)
		}
		s.log.Warn("form pdf missing from storage, regenerating", zap.Uint("form_id", id))
	}

	data, name, err := s.generatePDF(ctx, f)
	if err != nil {
		s.log.Error("failed to generate form pdf", zap.Error(err), zap.Uint("form_id", id))
		return nil, "", err
	}
	return data, name, nil
}

// RegeneratePDF is limited to administrators and the form's author.
func (s *FormService) RegeneratePDF(ctx context.Context, caller *domain.User, id uint) (*form.MedicalForm, error) {
	f, g, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if g != form.GrantAdmin && g != form.GrantCreator {
		return nil, ErrForbidden
	}

	if _, _, err := s.generatePDF(ctx, f); err != nil {
		s.log.Error("failed to regenerate form pdf", zap.Error(err), zap.Uint("form_id", id))
		return nil, err
	}

	s.Audit.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_form_pdf",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
	})
	return f, nil
}

// BackfillPDFs renders up to limit forms that have no document yet and
// returns how many succeeded. Individual failures are logged and skipped.
func (s *FormService) BackfillPDFs(ctx context.Context, limit int) (int, error) {
	forms, err := s.Forms.List(ctx, form.ListQuery{PDFMissingOnly: true, Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("listing forms without pdf: %w", err)
	}

	done := 0
	for _, f := range forms {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, _, err := s.generatePDF(ctx, f); err != nil {
			s.Metrics.BestEffortFailures.WithLabelValues("pdf").Inc()
			s.log.Warn("failed to backfill form pdf", zap.Error(err), zap.Uint("form_id", f.ID))
			continue
		}
		done++
	}
	return done, nil
}

// ListFormsForAdmin returns every form, newest first, with its PDF state.
func (s *FormService) ListFormsForAdmin(ctx context.Context, caller *domain.User) ([]*form.MedicalForm, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.Forms.List(ctx, form.ListQuery{})
}
