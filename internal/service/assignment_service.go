package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Strategies that can decide an assignment.
const (
	StrategyContinuity     = "continuity"
	StrategySpecialization = "specialization"
	StrategyWorkload       = "workload"
)

type Assignment struct {
	Neurologist *domain.User
	Strategy    string
	Keywords    []string
}

type AssignmentService struct {
	users   UserRepository
	forms   form.Repository
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewAssignmentService(users UserRepository, forms form.Repository, m *metrics.Collector, log *zap.Logger) *AssignmentService {
	return &AssignmentService{users: users, forms: forms, metrics: m, log: log}
}

// Assign picks the neurologist for a new submission. The patient's previous
// neurologist wins outright as long as that account is still active. If the
// previous neurologist was deactivated or removed, the case goes to the pool
// like a first visit. From the pool the least loaded active neurologist is
// chosen, preferring those whose specialization matches the case.
func (s *AssignmentService) Assign(ctx context.Context, p *patient.Patient, cmd *form.SubmitFormCommand) (*Assignment, error) {
	if n, err := s.previousNeurologist(ctx, p); err != nil {
		return nil, err
	} else if n != nil {
		return s.done(&Assignment{Neurologist: n, Strategy: StrategyContinuity}), nil
	}

	pool, err := s.users.ListByRoles(ctx, domain.NeurologistRoles, true)
	if err != nil {
		s.log.Error("failed to list neurologists", zap.Error(err))
		return nil, fmt.Errorf("listing neurologists: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoNeurologistAvailable
	}

	ids := lo.Map(pool, func(u *domain.User, _ int) uint { return u.ID })
	load, err := s.forms.CountSubmittedByAssignee(ctx, ids)
	if err != nil {
		s.log.Error("failed to compute neurologist workload", zap.Error(err))
		return nil, fmt.Errorf("computing workload: %w", err)
	}

	keywords := form.ExtractKeywords(cmd)
	strategy := StrategyWorkload
	candidates := pool
	if matched := lo.Filter(pool, func(u *domain.User, _ int) bool {
		return form.MatchesSpecialization(u.Specialization, keywords)
	}); len(matched) > 0 {
		candidates = matched
		strategy = StrategySpecialization
	}

	chosen := lo.MinBy(candidates, func(a, b *domain.User) bool {
		return load[a.ID] < load[b.ID]
	})

	s.log.Debug("neurologist selected",
		zap.Uint("neurologist_id", chosen.ID),
		zap.String("strategy", strategy),
		zap.Int64("workload", load[chosen.ID]),
		zap.Int("candidates", len(candidates)),
	)
	return s.done(&Assignment{Neurologist: chosen, Strategy: strategy, Keywords: keywords}), nil
}

// previousNeurologist returns whoever holds the patient's latest form. A
// holder who has since left or been deactivated does not count.
func (s *AssignmentService) previousNeurologist(ctx context.Context, p *patient.Patient) (*domain.User, error) {
	if p == nil || p.ID == 0 {
		return nil, nil
	}

	latest, err := s.forms.LatestByPatient(ctx, p.ID)
	if errors.Is(err, form.ErrFormNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to load patient history", zap.Error(err), zap.Uint("patient_id", p.ID))
		return nil, fmt.Errorf("loading patient history: %w", err)
	}
	if latest.AssignedToID == nil {
		return nil, nil
	}

	n, err := s.users.GetByID(ctx, *latest.AssignedToID)
	if errors.Is(err, domain.ErrUserNotFound) || (err == nil && !n.IsActive) {
		s.log.Warn("previous neurologist unavailable, falling back to pool",
			zap.Uint("patient_id", p.ID),
			zap.Uint("neurologist_id", *latest.AssignedToID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading previous neurologist: %w", err)
	}
	return n, nil
}

func (s *AssignmentService) done(a *Assignment) *Assignment {
	s.metrics.AssignmentsTotal.WithLabelValues(a.Strategy).Inc()
	return a
}
