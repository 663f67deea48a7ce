package form

import "github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"

// Grant names the rule that let a user through.
type Grant int

const (
	GrantNone Grant = iota
	GrantAdmin
	GrantCreator
	GrantAssignee
	GrantPickup
)

func (g Grant) String() string {
	switch g {
	case GrantAdmin:
		return "admin"
	case GrantCreator:
		return "creator"
	case GrantAssignee:
		return "assignee"
	case GrantPickup:
		return "pickup"
	}
	return "none"
}

// Evaluate applies the access rules in order and returns the first that
// matches.
func Evaluate(u *domain.User, f *MedicalForm) Grant {
	if u == nil || f == nil {
		return GrantNone
	}
	switch {
	case u.Role == domain.RoleAdmin:
		return GrantAdmin
	case f.DoctorID == u.ID:
		return GrantCreator
	case f.IsAssignedTo(u.ID):
		return GrantAssignee
	case u.Role.IsNeurologist() && f.IsUnclaimed():
		return GrantPickup
	}
	return GrantNone
}

// CanAccess gates every read or write of a form, its attachments and its
// responses.
func CanAccess(u *domain.User, f *MedicalForm) bool {
	return Evaluate(u, f) != GrantNone
}

// CanDoctorAccessResponse is the narrower check used when a referring
// doctor reads the answer to their form: admins and the form's author.
func CanDoctorAccessResponse(u *domain.User, f *MedicalForm) bool {
	switch Evaluate(u, f) {
	case GrantAdmin, GrantCreator:
		return true
	}
	return false
}
