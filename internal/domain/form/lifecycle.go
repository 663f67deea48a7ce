package form

import "github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"

// NextStatus is the status a form takes when a response is recorded. It
// depends only on who responds and whether they ask for supervision.
func NextStatus(responder domain.Role, requiresSupervision bool) Status {
	switch responder {
	case domain.RoleNeurologueResident:
		if requiresSupervision {
			return StatusRequiresSupervision
		}
		return StatusUnderReview
	case domain.RoleNeurologue:
		return StatusCompleted
	default:
		return StatusUnderReview
	}
}
