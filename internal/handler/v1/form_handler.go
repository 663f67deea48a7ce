package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// multipartOverhead covers the JSON part and multipart framing.
const multipartOverhead = 1 << 20

var uploadParts = []struct {
	field string
	kind  form.AttachmentKind
}{
	{"mriPhoto", form.AttachmentMRI},
	{"seizureVideo", form.AttachmentVideo},
}

// submitForm accepts a multipart body: the form fields as JSON in the "form"
// part, plus optional "mriPhoto" and "seizureVideo" files. A plain JSON body
// is accepted when there are no files.
func (h *Handler) submitForm(c *gin.Context) {
	limit := h.upload.MaxImageBytes + h.upload.MaxVideoBytes + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var (
		req     submitFormRequest
		uploads []service.Upload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		raw := c.PostForm("form")
		if raw == "" {
			respondError(c, http.StatusBadRequest, `multipart field "form" is required`)
			return
		}
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid form JSON: "+err.Error())
			return
		}
		for _, part := range uploadParts {
			up, err := readUpload(c, part.field, part.kind)
			if err != nil {
				respondError(c, http.StatusBadRequest, err.Error())
				return
			}
			if up != nil {
				uploads = append(uploads, *up)
			}
		}
	} else if !bindJSON(c, &req) {
		return
	}

	cmd, err := req.command()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	f, err := h.svc.Forms.Submit(c.Request.Context(), currentUser(c), cmd, uploads)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toFormDTO(f))
}

// readUpload returns nil when the field is absent.
func readUpload(c *gin.Context, field string, kind form.AttachmentKind) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	data, err := readFileHeader(fh)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}

	mimeType := sniffMimeType(fh.Header.Get("Content-Type"), data)
	return &service.Upload{Kind: kind, FileName: fh.Filename, MimeType: mimeType, Data: data}, nil
}

// sniffMimeType keeps a declared type and falls back to the content when the
// client sent none or the generic binary type.
func sniffMimeType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) listDoctorForms(c *gin.Context) {
	filter := form.DoctorFilter(strings.ToLower(c.Query("filter")))
	forms, err := h.svc.Forms.ListForDoctor(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toFormDTOs(forms))
}

func (h *Handler) getForm(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	f, err := h.svc.Forms.GetForm(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toFormDTO(f))
}

func (h *Handler) latestResponse(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	r, err := h.svc.Responses.Latest(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toResponseDTO(r))
}

func (h *Handler) hasResponse(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	exists, err := h.svc.Responses.HasResponse(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"form_id": id, "has_response": exists})
}

func (h *Handler) responseDetails(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	d, err := h.svc.Responses.ResponseDetails(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, responseDetailsDTO{
		Form:     toFormDTO(d.Form),
		Response: toResponseDTO(d.Response),
		History:  lo.Map(d.History, func(r *response.FormResponse, _ int) responseDTO { return toResponseDTO(r) }),
	})
}

func (h *Handler) downloadPDF(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	data, name, err := h.svc.Forms.PDF(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) regeneratePDF(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	f, err := h.svc.Forms.RegeneratePDF(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toFormDTO(f))
}

func (h *Handler) adminForms(c *gin.Context) {
	forms, err := h.svc.Forms.ListFormsForAdmin(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toFormDTOs(forms))
}

func (h *Handler) deleteForm(c *gin.Context) {
	id, ok := parseID(c, "formId")
	if !ok {
		return
	}
	if err := h.svc.Forms.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
