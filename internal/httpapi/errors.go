package httpapi

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/gin-gonic/gin"
)

const (
	errorCodeInvalidPayload = "invalid_payload"
	errorCodeInternal       = "internal_error"
	messageInternal         = "internal error"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{kind: booking.ErrForbiddenTransition, status: http.StatusForbidden, code: "forbidden_transition"},
	{kind: booking.ErrNotFound, status: http.StatusNotFound, code: "not_found"},
	{kind: booking.ErrValidation, status: http.StatusBadRequest, code: "validation_error"},
	{kind: booking.ErrInvalidTransition, status: http.StatusBadRequest, code: "invalid_transition"},
	{kind: booking.ErrRedemptionLimit, status: http.StatusBadRequest, code: "redemption_limit"},
	{kind: booking.ErrAdmissionRejected, status: http.StatusConflict, code: "admission_rejected"},
	{kind: booking.ErrLocked, status: http.StatusConflict, code: "locked"},
}

// statusForError maps a service error to an HTTP status and error code.
func statusForError(err error) (int, string) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.kind) {
			return mapping.status, mapping.code
		}
	}
	return http.StatusInternalServerError, errorCodeInternal
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
