package httpapi

import (
	stderrors "errors"
	"net/http"

	"sales-orchestrator/internal/common/errors"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// UnavailableEnvelope carries the customer-facing handoff text next to the error.
type UnavailableEnvelope struct {
	Error    APIError `json:"error"`
	Response string   `json:"response"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFailure maps an application error onto a status code and envelope.
func RespondFailure(c *gin.Context, err error) {
	var unavailable *errors.OrchestrationUnavailableError
	if stderrors.As(err, &unavailable) {
		c.JSON(http.StatusServiceUnavailable, UnavailableEnvelope{
			Error: APIError{
				Message: "sales assistant unavailable",
				Code:    string(errors.ErrCodeOrchestrationUnavailable),
			},
			Response: unavailable.UserMessage(),
		})
		return
	}

	stdErr := errors.AsStandardError(err)
	c.JSON(statusFor(stdErr.Code), ErrorEnvelope{
		Error: APIError{
			Message: stdErr.Message,
			Code:    string(stdErr.Code),
		},
	})
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeLeadNotFound, errors.ErrCodeVehicleNotFound, errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeGenerationTimeout, errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeExternalService, errors.ErrCodeGenerationFailed, errors.ErrCodeEventPublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
