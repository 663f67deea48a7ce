package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type createdDoctorResponse struct {
	User        userDTO `json:"user"`
	Password    string  `json:"generated_password"`
	Reactivated bool    `json:"reactivated"`
}

// createDoctor returns the generated password once; it is not stored in clear.
func (h *Handler) createDoctor(c *gin.Context) {
	var req doctorRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.svc.Admin.CreateDoctor(c.Request.Context(), currentUser(c), req.command())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	respondCreated(c, createdDoctorResponse{
		User:        toUserDTO(out.User),
		Password:    out.Password,
		Reactivated: out.Reactivated,
	})
}

func (h *Handler) pendingRequests(c *gin.Context) {
	users, err := h.svc.Admin.PendingRequests(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, lo.Map(users, func(u *domain.User, _ int) userDTO { return toUserDTO(u) }))
}

func (h *Handler) rejectRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Admin.RejectRequest(c.Request.Context(), currentUser(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deactivateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	released, err := h.svc.Admin.DeactivateUser(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"user_id": id, "released_forms": released})
}

func (h *Handler) reassignForm(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	var req reassignRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.svc.Admin.ReassignForm(c.Request.Context(), currentUser(c), id, req.NeurologistID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toFormDTO(f))
}
