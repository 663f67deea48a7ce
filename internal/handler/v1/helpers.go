package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, APIResponse[any]{Message: message})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps service and domain errors onto HTTP statuses.
// Anything unrecognised is a 500 without detail.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, form.ErrFormNotFound),
		errors.Is(err, form.ErrAttachmentNotFound),
		errors.Is(err, response.ErrResponseNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrUserAlreadyActive),
		errors.Is(err, service.ErrAdminExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "ALREADY_CLAIMED"})

	case errors.Is(err, form.ErrInvalidFrequency),
		errors.Is(err, form.ErrInvalidFilter),
		errors.Is(err, patient.ErrInvalidGender),
		errors.Is(err, patient.ErrCINRequired),
		errors.Is(err, response.ErrInvalidType),
		errors.Is(err, response.ErrInvalidUrgency),
		errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "account is awaiting activation",
			Code:  "ACCOUNT_INACTIVE",
		})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	case errors.Is(err, service.ErrNoNeurologistAvailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  "NO_NEUROLOGIST",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseID(c *gin.Context, param string) (uint, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}
