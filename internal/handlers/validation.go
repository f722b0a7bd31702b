package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	appErrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/response"
	appValidator "github.com/campusbridge/onboard/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// The body is read through gin's body cache so middleware that already inspected it
// (the domain policy) does not leave the handler with an empty reader.
// When validation fails, an error response is written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindBodyWith(dest, binding.JSON); err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return false
		}
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}

	return true
}

// limitBody caps the remaining request body at limit bytes.
func limitBody(c *gin.Context, limit int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func validationError(err error) *appErrors.AppError {
	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return appErrors.NewValidation(ve.FieldMap())
	}
	return appErrors.NewBadRequest("invalid request payload")
}

// parseIfMatch reads the optimistic concurrency version from the If-Match header.
// Quoted and weak forms ("3", W/"3") are accepted; an absent header yields zero.
func parseIfMatch(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return 0, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 1 {
		return 0, appErrors.NewBadRequest("If-Match must carry a positive profile version")
	}
	return version, nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}
