package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/internal/middleware"
	"github.com/campusbridge/onboard/internal/models"
	appErrors "github.com/campusbridge/onboard/pkg/errors"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentAccount returns the record loaded by the auth middleware.
func currentAccount(c *gin.Context) (models.AccountRecord, error) {
	value, ok := c.Get(middleware.CtxAccountKey)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	record, ok := value.(models.AccountRecord)
	if !ok || record == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return record, nil
}
