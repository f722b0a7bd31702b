package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/response"
)

// Recovery turns handler panics into the generic 500 envelope. The panic
// value and stack go to the log only. http.ErrAbortHandler is re-raised so
// net/http can drop the connection as intended.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			logger.WithModule("http").Error("handler panic",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("account_id", c.GetString(CtxAccountIDKey)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the JSON envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.ErrNotFound.WithMessage(fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}
