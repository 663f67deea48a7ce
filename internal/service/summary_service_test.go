package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_PendingOwnCaseload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSummaryService(h.forms, h.log)

	doctor := h.user(t, domain.RoleMedecin, "Dr D", "")
	n := h.user(t, domain.RoleNeurologue, "Dr N", "")
	p := h.patient(t, "1")
	submitted := h.seedForm(t, p, doctor, n, form.StatusSubmitted)
	supervised := h.seedForm(t, p, doctor, n, form.StatusRequiresSupervision)
	completed := h.seedForm(t, p, doctor, n, form.StatusCompleted)
	h.seedForm(t, p, doctor, nil, form.StatusSubmitted)

	pending, err := svc.Pending(ctx, n)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, supervised.ID, pending[0].FormID)
	assert.Equal(t, submitted.ID, pending[1].FormID)
	for _, s := range pending {
		assert.False(t, s.PickupCandidate)
	}

	done, err := svc.Completed(ctx, n)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, completed.ID, done[0].FormID)

	all, err := svc.All(ctx, n)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSummary_PendingFallsBackToUnassigned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSummaryService(h.forms, h.log)

	doctor := h.user(t, domain.RoleMedecin, "Dr D", "")
	busy := h.user(t, domain.RoleNeurologue, "Dr B", "")
	idle := h.user(t, domain.RoleNeurologueResident, "Dr I", "")
	p := h.patient(t, "1")
	h.seedForm(t, p, doctor, busy, form.StatusSubmitted)
	orphan := h.seedForm(t, p, doctor, nil, form.StatusSubmitted)
	h.seedForm(t, p, doctor, nil, form.StatusUnderReview)

	pending, err := svc.Pending(ctx, idle)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, orphan.ID, pending[0].FormID)
	assert.True(t, pending[0].PickupCandidate)
	assert.Nil(t, pending[0].AssignedToID)

	// The fallback never feeds the caller's own lists.
	all, err := svc.All(ctx, idle)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Referring doctors get no pickup offers.
	pending, err = svc.Pending(ctx, doctor)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSummary_CaseloadListsStayWithinAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSummaryService(h.forms, h.log)

	doctor := h.user(t, domain.RoleMedecin, "Dr D", "")
	busy := h.user(t, domain.RoleNeurologue, "Dr B", "")
	idle := h.user(t, domain.RoleNeurologue, "Dr I", "")
	p := h.patient(t, "1")
	h.seedForm(t, p, doctor, busy, form.StatusSubmitted)
	h.seedForm(t, p, doctor, busy, form.StatusUnderReview)
	h.seedForm(t, p, doctor, busy, form.StatusCompleted)
	h.seedForm(t, p, doctor, idle, form.StatusCompleted)
	h.seedForm(t, p, doctor, nil, form.StatusSubmitted)

	ids := func(rows []FormSummary) []uint {
		return lo.Map(rows, func(s FormSummary, _ int) uint { return s.FormID })
	}
	for _, n := range []*domain.User{busy, idle} {
		pending, err := svc.Pending(ctx, n)
		require.NoError(t, err)
		done, err := svc.Completed(ctx, n)
		require.NoError(t, err)
		all, err := svc.All(ctx, n)
		require.NoError(t, err)

		// Pickup offers are not caseload and sit outside All.
		own := lo.Filter(pending, func(s FormSummary, _ int) bool { return !s.PickupCandidate })
		assert.Subset(t, ids(all), ids(own), n.Name)
		assert.Subset(t, ids(all), ids(done), n.Name)
		assert.Len(t, all, len(own)+len(done), n.Name)
	}

	pending, err := svc.Pending(ctx, idle)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].PickupCandidate)
}

func TestSummary_Projection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSummaryService(h.forms, h.log)
	svc.now = func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) }

	doctor := h.user(t, domain.RoleMedecin, "Dr D", "")
	n := h.user(t, domain.RoleNeurologue, "Dr N", "")

	// Birthday later in the year still counts as a full year.
	birth := time.Date(1990, time.December, 31, 0, 0, 0, 0, time.UTC)
	p := &patient.Patient{CIN: "08123456", Name: "Amira Ben Salah", Gender: patient.GenderFemale, Birthdate: &birth}
	require.NoError(t, memPatients{h.db}.Save(ctx, p))

	f := &form.MedicalForm{
		PatientID:    p.ID,
		DoctorID:     doctor.ID,
		AssignedToID: &n.ID,
		Status:       form.StatusSubmitted,
		SeizureType:  form.SeizureAbsence,
		Symptoms:     "- Type de crise: Absence\n",
	}
	require.NoError(t, h.forms.Create(ctx, f))
	mri := &form.FileAttachment{FormID: f.ID, Kind: form.AttachmentMRI, FileName: "irm.png"}
	require.NoError(t, memAttachments{h.db}.Create(ctx, mri))

	pending, err := svc.Pending(ctx, n)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	s := pending[0]
	assert.Equal(t, "Absence", s.SeizureType)
	assert.Equal(t, "- Type de crise: Absence\n", s.SymptomSummary)
	assert.Equal(t, "Amira Ben Salah", s.PatientName)
	assert.Equal(t, "08123456", s.PatientCIN)
	assert.Equal(t, 34, s.PatientAge)
	assert.Equal(t, "F", s.PatientGender)
	assert.Equal(t, "Dr D", s.DoctorName)
	assert.Equal(t, "dr.d@hopital.tn", s.DoctorEmail)
	assert.Equal(t, []string{fmt.Sprintf("/api/neurologue/attachments/%d", mri.ID)}, s.AttachmentURLs)
}
