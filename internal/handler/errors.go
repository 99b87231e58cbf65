// ===========================================
// Package handler - HTTP Request Handlers
// ===========================================
// Handlers are thin:
// 1. Parse request
// 2. Call service
// 3. Format response
//
// Every failure goes through respondError so the error body
// has one shape across endpoints.
// ===========================================

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/linktrack/internal/models"
	"github.com/user/linktrack/internal/service"
)

// statusFor maps an error kind to its HTTP status.
var statusFor = map[string]int{
	models.ErrCodeInvalidInput:        http.StatusBadRequest,
	models.ErrCodeInvalidURL:          http.StatusBadRequest,
	models.ErrCodeInvalidCode:         http.StatusBadRequest,
	models.ErrCodeConflict:            http.StatusConflict,
	models.ErrCodeNotFound:            http.StatusNotFound,
	models.ErrCodeBatchTooLarge:       http.StatusRequestEntityTooLarge,
	models.ErrCodeTimeout:             http.StatusGatewayTimeout,
	models.ErrCodeGenerationExhausted: http.StatusInternalServerError,
}

// respondError writes err as an ErrorResponse. Unclassified errors
// become a bare 500; their text is attached to the gin context for the
// request logger and never sent to the client.
func respondError(c *gin.Context, err error) {
	kind := service.ErrorKind(err)
	status, ok := statusFor[kind]
	if !ok {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Internal server error",
			Code:  models.ErrCodeInternalError,
		})
		return
	}

	resp := models.ErrorResponse{Error: err.Error(), Code: kind}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// badRequest reports input that failed request binding.
func badRequest(c *gin.Context, msg string, err error) {
	resp := models.ErrorResponse{Error: msg, Code: models.ErrCodeInvalidInput}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
