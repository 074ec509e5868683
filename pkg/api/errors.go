package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeDomain:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeResourceExhausted:
		return http.StatusRequestEntityTooLarge
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body and counts it under operation
func (h *Handlers) respondError(c *gin.Context, operation string, err error) {
	status := statusFor(err)
	kind := errors.TypeOf(err).String()

	body := gin.H{
		"error": err.Error(),
		"kind":  kind,
	}
	if param := errors.ParamOf(err); param != "" {
		body["param"] = param
	}

	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s failed: %v", operation, err)
	} else {
		h.log.Debugf("%s rejected: %v", operation, err)
	}

	h.recorder.RecordError(operation, kind)
	c.JSON(status, body)
}

// badRequest reports a body that could not be bound
func (h *Handlers) badRequest(c *gin.Context, operation string, err error) {
	h.respondError(c, operation, errors.WithType(errors.Wrap(err, "invalid request body"), errors.ErrorTypeInvalidArgument))
}
