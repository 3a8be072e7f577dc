package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrNotPending),
		errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrDuplicateAdvance):
		return http.StatusConflict
	case errors.Is(err, models.ErrIllegalTransition),
		errors.Is(err, models.ErrExpired),
		errors.Is(err, models.ErrNotListable),
		errors.Is(err, models.ErrReceiptNotActive),
		errors.Is(err, models.ErrOverCollateralized):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr.Errors))
		for _, fe := range verr.Errors {
			fields[fe.Field] = fe.Message
		}
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(status, body)
}
