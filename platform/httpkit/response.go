// Package httpkit holds the gin helpers shared by every module's HTTP
// handlers: response shaping, error mapping, auth middleware, and the
// request identity accessors.
package httpkit

import (
	"errors"
	"net/http"

	"crm_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body shape for every endpoint.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// OK writes a 200 with the payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Error writes an error body with an explicit status. Handlers use this for
// request-shape failures caught before the service layer runs.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes the response for a service-layer error and reports
// whether it did. Typed errors map through their Kind; internal errors get a
// generic body so wrapped causes never reach the client. Untyped errors fall
// back to 400.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if domainErr.Kind == apperr.KindInternal {
			message = "internal server error"
		}
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   message,
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
