package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/registryerr"
)

// errorResponse is the {error, message, detail?} shape of spec.md §7
// "User-visible shape". kind is the stable machine-readable class,
// message is safe to show a caller; no stack traces ever reach here.
type errorResponse struct {
	Error   registryerr.Kind `json:"error"`
	Message string           `json:"message"`
	Detail  any              `json:"detail,omitempty"`
}

// statusFor maps an error kind to its HTTP status class (spec.md §7).
func statusFor(kind registryerr.Kind) int {
	switch kind {
	case registryerr.Validation:
		return http.StatusBadRequest
	case registryerr.NotFound:
		return http.StatusNotFound
	case registryerr.AlreadyExists:
		return http.StatusConflict
	case registryerr.PermissionDenied:
		return http.StatusForbidden
	case registryerr.Unauthenticated:
		return http.StatusUnauthorized
	case registryerr.BackendUnavailable:
		return http.StatusServiceUnavailable
	case registryerr.ExternalProcessFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError translates err into the JSON error shape and writes
// it, logging Unexpected kinds with a stack-free full error value
// (spec.md §7: "always logged with stack" — zap.Error carries the
// wrapped chain, which is the Go analogue available here).
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := registryerr.KindOf(err)
	resp := errorResponse{Error: kind, Message: err.Error()}

	if rerr, ok := err.(*registryerrError); ok {
		resp.Detail = rerr.Detail
	}
	if kind == registryerr.Unexpected {
		logger.Error("unhandled error reaching HTTP edge", zap.Error(err))
	}
	c.JSON(statusFor(kind), resp)
}

// registryerrError is a local alias so respondError can read Detail
// off a *registryerr.Error without the package stuttering on import.
type registryerrError = registryerr.Error
