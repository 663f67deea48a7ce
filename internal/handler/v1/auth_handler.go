package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.svc.Auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

// registerAdmin only succeeds while no administrator exists.
func (h *Handler) registerAdmin(c *gin.Context) {
	var req registerAdminRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.Auth.BootstrapAdmin(c.Request.Context(), service.BootstrapAdminCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toUserDTO(u))
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	u := currentUser(c)
	if err := h.svc.Auth.ChangePassword(c.Request.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "password updated")
}

func (h *Handler) requestAccount(c *gin.Context) {
	var req doctorRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.Accounts.RequestAccount(c.Request.Context(), req.command())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, APIResponse[userDTO]{
		Data:    toUserDTO(u),
		Message: "account request received; an administrator will review it",
	})
}
