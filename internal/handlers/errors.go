package handlers

import (
	"net/http"
	"strconv"

	"github.com/agrineural/agrineural/internal/services"
	"github.com/agrineural/agrineural/internal/telemetry"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

var kindStatus = map[string]int{
	services.KindInvalidInput:         http.StatusBadRequest,
	services.KindUnauthenticated:      http.StatusUnauthorized,
	services.KindAccessDenied:         http.StatusForbidden,
	services.KindNotFound:             http.StatusNotFound,
	services.KindConflict:             http.StatusConflict,
	services.KindStorageWriteFailed:   http.StatusInternalServerError,
	services.KindClassificationFailed: http.StatusInternalServerError,
	services.KindPersistenceFailed:    http.StatusInternalServerError,
	services.KindInternal:             http.StatusInternalServerError,
}

// respondError writes err as an ErrorResponse. Server-side failures get a
// generic message; the cause is attached to the gin context for the request
// log.
func respondError(c *gin.Context, err error) {
	kind := services.ErrorKind(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		c.Error(err)
		if kind == services.KindInternal {
			telemetry.CaptureError(err, map[string]string{"route": c.FullPath()})
		}
		c.JSON(status, ErrorResponse{Error: "internal server error", Kind: kind})
		return
	}

	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: services.KindInvalidInput})
}

// uintParam reads a positive numeric path parameter.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
