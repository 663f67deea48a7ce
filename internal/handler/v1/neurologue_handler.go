package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func (h *Handler) pendingForms(c *gin.Context) {
	h.summaries(c, h.svc.Summaries.Pending)
}

func (h *Handler) completedForms(c *gin.Context) {
	h.summaries(c, h.svc.Summaries.Completed)
}

func (h *Handler) allForms(c *gin.Context) {
	h.summaries(c, h.svc.Summaries.All)
}

func (h *Handler) summaries(c *gin.Context, list func(context.Context, *domain.User) ([]service.FormSummary, error)) {
	out, err := list(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *Handler) claimForm(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	f, err := h.svc.Forms.Claim(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toFormDTO(f))
}

func (h *Handler) listAttachments(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	as, err := h.svc.Forms.ListAttachments(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, lo.Map(as, func(a *form.FileAttachment, _ int) attachmentDTO { return toAttachmentDTO(a) }))
}

func (h *Handler) downloadAttachment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, data, err := h.svc.Forms.AttachmentContent(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", a.FileName))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, mimeType, data)
}

func (h *Handler) recordResponse(c *gin.Context) {
	var req formResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd, err := req.command()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	r, err := h.svc.Responses.Record(c.Request.Context(), currentUser(c), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toResponseDTO(r))
}
