package service

import (
	"context"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func (h *harness) adminService() *AdminService {
	return NewAdminService(memTx{h.db}, h.users, h.forms, h.notifier, h.audit, h.log)
}

func TestRequestAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewAccountService(h.users, h.audit, h.log)

	u, err := svc.RequestAccount(ctx, &DoctorCommand{
		Name:           " Dr Sami Trabelsi ",
		Email:          "Sami.Trabelsi@Hopital.tn",
		CIN:            "07000001",
		Role:           "neurologue_resident",
		Specialization: "Epilepsy",
	})
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, domain.RoleNeurologueResident, u.Role)
	assert.Equal(t, "sami.trabelsi@hopital.tn", u.Email)
	assert.Equal(t, "Dr Sami Trabelsi", u.Name)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = svc.RequestAccount(ctx, &DoctorCommand{Name: "Dup", Email: "sami.trabelsi@hopital.tn"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	_, err = svc.RequestAccount(ctx, &DoctorCommand{Name: "Dup", Email: "other@hopital.tn", CIN: "07000001"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	withPassword, err := svc.RequestAccount(ctx, &DoctorCommand{Name: "P", Email: "p@hopital.tn", Password: "correct-horse-battery"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMedecin, withPassword.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(withPassword.PasswordHash), []byte("correct-horse-battery")))
}

func TestRequestAccount_Validation(t *testing.T) {
	tests := []struct {
		name   string
		cmd    DoctorCommand
		fields int
	}{
		{"missing name and email", DoctorCommand{}, 2},
		{"admin role", DoctorCommand{Name: "X", Email: "x@h.tn", Role: "ADMIN"}, 1},
		{"unknown role", DoctorCommand{Name: "X", Email: "x@h.tn", Role: "SURGEON"}, 1},
		{"short password", DoctorCommand{Name: "X", Email: "x@h.tn", Password: "short"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := NewAccountService(h.users, h.audit, h.log).RequestAccount(context.Background(), &tt.cmd)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Fields, tt.fields)
			assert.Empty(t, h.db.users)
		})
	}
}

func TestCreateDoctor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.adminService()
	admin := h.user(t, domain.RoleAdmin, "Admin", "")

	created, err := svc.CreateDoctor(ctx, admin, &DoctorCommand{Name: "Dr New", Email: "new@hopital.tn", Role: "NEUROLOGUE"})
	require.NoError(t, err)
	assert.False(t, created.Reactivated)
	assert.True(t, created.User.IsActive)
	assert.Len(t, created.Password, generatedPasswordLength)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.User.PasswordHash), []byte(created.Password)))

	_, err = svc.CreateDoctor(ctx, admin, &DoctorCommand{Name: "Dr New", Email: "NEW@hopital.tn"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	_, err = svc.CreateDoctor(ctx, created.User, &DoctorCommand{Name: "X", Email: "x@hopital.tn"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateDoctor_ActivatesPendingRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.adminService()
	admin := h.user(t, domain.RoleAdmin, "Admin", "")

	req, err := NewAccountService(h.users, h.audit, h.log).RequestAccount(ctx, &DoctorCommand{
		Name:  "Dr Pending",
		Email: "pending@hopital.tn",
		Role:  "MEDECIN",
	})
	require.NoError(t, err)

	pending, err := svc.PendingRequests(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	created, err := svc.CreateDoctor(ctx, admin, &DoctorCommand{
		Name:           "Dr Pending",
		Email:          "pending@hopital.tn",
		Role:           "NEUROLOGUE",
		Specialization: "Epilepsy",
	})
	require.NoError(t, err)
	assert.True(t, created.Reactivated)
	assert.Equal(t, req.ID, created.User.ID)

	stored, err := h.users.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, domain.RoleNeurologue, stored.Role)
	assert.Equal(t, "Epilepsy", stored.Specialization)

	pending, err = svc.PendingRequests(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejectRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.adminService()
	admin := h.user(t, domain.RoleAdmin, "Admin", "")
	active := h.user(t, domain.RoleMedecin, "Active", "")

	req, err := NewAccountService(h.users, h.audit, h.log).RequestAccount(ctx, &DoctorCommand{Name: "R", Email: "r@hopital.tn"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RejectRequest(ctx, admin, active.ID), domain.ErrUserAlreadyActive)
	assert.ErrorIs(t, svc.RejectRequest(ctx, active, req.ID), ErrForbidden)
	require.NoError(t, svc.RejectRequest(ctx, admin, req.ID))

	_, err = h.users.GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeactivateUser_ReleasesSubmittedForms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.adminService()
	admin := h.user(t, domain.RoleAdmin, "Admin", "")
	doctor := h.user(t, domain.RoleMedecin, "Dr D", "")
	n := h.user(t, domain.RoleNeurologue, "Dr N", "")
	p := h.patient(t, "1")

	submitted := h.seedForm(t, p, doctor, n, form.StatusSubmitted)
	reviewing := h.seedForm(t, p, doctor, n, form.StatusUnderReview)

	released, err := svc.DeactivateUser(ctx, admin, n.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, released)

	stored, err := h.users.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	f, err := h.forms.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Nil(t, f.AssignedToID)
	f, err = h.forms.GetByID(ctx, reviewing.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, *f.AssignedToID)

	released, err = svc.DeactivateUser(ctx, admin, doctor.ID)
	require.NoError(t, err)
	assert.Zero(t, released)

	_, err = svc.DeactivateUser(ctx, admin, admin.ID)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReassignForm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.adminService()
	admin := h.user(t, domain.RoleAdmin, "Admin", "")
	doctor := h.user(t, domain.RoleMedecin, "Dr D", "")
	resident := h.user(t, domain.RoleNeurologueResident, "Dr R", "")
	senior := h.user(t, domain.RoleNeurologue, "Dr S", "")
	p := h.patient(t, "1")

	open := h.seedForm(t, p, doctor, resident, form.StatusRequiresSupervision)
	closed := h.seedForm(t, p, doctor, resident, form.StatusCompleted)

	f, err := svc.ReassignForm(ctx, admin, open.ID, senior.ID)
	require.NoError(t, err)
	assert.Equal(t, senior.ID, *f.AssignedToID)
	assert.Equal(t, form.StatusRequiresSupervision, f.Status)

	notes := h.notificationsFor(senior.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, notification.TypeNewForm, notes[0].Type)
	assert.Equal(t, open.ID, *notes[0].RelatedID)

	var ve *ValidationError
	_, err = svc.ReassignForm(ctx, admin, closed.ID, senior.ID)
	assert.ErrorAs(t, err, &ve)
	_, err = svc.ReassignForm(ctx, admin, open.ID, doctor.ID)
	assert.ErrorAs(t, err, &ve)
	_, err = svc.ReassignForm(ctx, senior, open.ID, senior.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
