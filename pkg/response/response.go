package response

import (
	"net/http"
	"strconv"
	"sync/atomic"

	appErrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/gin-gonic/gin"
)

var exposeDetail atomic.Bool

// ExposeErrorDetail toggles whether internal error text is rendered in the
// "detail" field. Only enable it for development environments.
func ExposeErrorDetail(enabled bool) {
	exposeDetail.Store(enabled)
}

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

// RetryAfterError is implemented by errors that tell the client when to retry.
type RetryAfterError interface {
	RetryAfterSeconds() int
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	info := &ErrorInfo{
		Code:    appErr.Code,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	}

	if ra, ok := err.(RetryAfterError); ok {
		info.RetryAfter = ra.RetryAfterSeconds()
	} else if ra, ok := appErr.Internal.(RetryAfterError); ok {
		info.RetryAfter = ra.RetryAfterSeconds()
	}
	if info.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(info.RetryAfter))
	}

	if exposeDetail.Load() && appErr.Internal != nil {
		info.Detail = appErr.Internal.Error()
	}

	c.JSON(status, Response{
		Success: false,
		Error:   info,
	})
}
