package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizmanager/internal/store"
)

// Error codes returned in ErrorResponse.Error.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func badRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: CodeInvalidInput, Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// storeError maps repository errors. Anything unknown is a 500 whose cause
// is kept in the gin error list for the request log.
func storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		abortError(c, http.StatusNotFound, CodeNotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		abortError(c, http.StatusConflict, CodeConflict, what+" already exists")
	default:
		_ = c.Error(err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
