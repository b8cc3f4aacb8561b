package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps the error kind to an HTTP status and sends it.
// NotFound -> 404, Validation and InvalidTransition -> 400, Conflict -> 409,
// anything else -> 500 with the message withheld.
func RespondWithError(c *gin.Context, err error) {
	kind := errors.KindOf(err)

	message := err.Error()
	var status int
	switch kind {
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindValidation, errors.KindInvalidTransition:
		status = http.StatusBadRequest
	case errors.KindConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
	}

	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    kind.String(),
			Message: message,
		},
	})
}
