package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/internal/models"
	"github.com/campusbridge/onboard/internal/sections"
	"github.com/campusbridge/onboard/internal/services"
	"github.com/campusbridge/onboard/internal/storage"
	"github.com/campusbridge/onboard/internal/wizard"
	appErrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/response"
)

// ProfileHandler exposes the authenticated account's profile and wizard endpoints.
type ProfileHandler struct {
	kind     models.AccountKind
	profiles *services.ProfileService
	uploads  *storage.Uploader
	maxBody  int64
}

// DefaultMaxBodyBytes bounds section payloads when the caller passes no limit.
const DefaultMaxBodyBytes int64 = 1 << 20

// NewProfileHandler wires the profile service for one account kind. uploads may be
// nil, in which case the media endpoints report the feature as unavailable.
// maxBody <= 0 selects DefaultMaxBodyBytes.
func NewProfileHandler(kind models.AccountKind, profiles *services.ProfileService, uploads *storage.Uploader, maxBody int64) *ProfileHandler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &ProfileHandler{kind: kind, profiles: profiles, uploads: uploads, maxBody: maxBody}
}

// GET /api/{kind}/me
func (h *ProfileHandler) Me(c *gin.Context) {
	record, err := currentAccount(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("ETag", etag(record.AccountBase().Version))
	response.Success(c, http.StatusOK, gin.H{
		"user":     record,
		"userType": h.kind,
		"progress": wizard.Evaluate(h.kind, record),
	})
}

// PATCH /api/{kind}/me/:section
func (h *ProfileHandler) UpdateSection(c *gin.Context) {
	record, err := currentAccount(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := parseIfMatch(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limitBody(c, h.maxBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.NewBadRequest("unable to read request body"))
		return
	}

	update, err := h.profiles.UpdateSection(requestContext(c), h.kind, record.AccountBase().ID, c.Param("section"), payload, version)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.renderUpdate(c, update)
}

type achievementsRequest struct {
	Achievements []sections.Achievement `json:"achievements"`
}

// POST /api/students/me/achievements
func (h *ProfileHandler) ReplaceAchievements(c *gin.Context) {
	record, err := currentAccount(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := parseIfMatch(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req achievementsRequest
	limitBody(c, h.maxBody)
	if !bindAndValidate(c, &req) {
		return
	}

	update, err := h.profiles.ReplaceAchievements(requestContext(c), h.kind, record.AccountBase().ID, req.Achievements, version)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.renderUpdate(c, update)
}

func (h *ProfileHandler) renderUpdate(c *gin.Context, update services.SectionUpdate) {
	payload := gin.H{
		"user":     update.Account,
		"progress": update.Progress,
	}
	if update.NextStep != nil {
		payload["next_step"] = update.NextStep
	}
	c.Header("ETag", etag(update.Account.AccountBase().Version))
	response.Success(c, http.StatusOK, payload)
}

// GET /api/{kind}/me/progress
func (h *ProfileHandler) Progress(c *gin.Context) {
	record, err := currentAccount(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, wizard.Evaluate(h.kind, record))
}

// GET /api/{kind}/me/wizard/:step
func (h *ProfileHandler) Step(c *gin.Context) {
	key := c.Param("step")
	next, hasNext, err := wizard.Next(h.kind, key)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound.WithMessage("unknown wizard step "+key))
		return
	}
	previous, hasPrevious, _ := wizard.Previous(h.kind, key)

	current := gin.H{"key": key}
	for _, step := range wizard.Steps(h.kind) {
		if step.Key == key {
			current = gin.H{"key": step.Key, "title": step.Title, "section": step.Section}
		}
	}

	payload := gin.H{"step": current}
	if hasNext {
		payload["next"] = next
	}
	if hasPrevious {
		payload["previous"] = previous
	}
	response.Success(c, http.StatusOK, payload)
}

// UploadMedia handles the logo (institutes) and profile photo (students) uploads.
// field names the multipart form field carrying the image.
func (h *ProfileHandler) UploadMedia(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.uploads == nil {
			response.Error(c, appErrors.ErrServiceUnavailable.WithMessage("file uploads are not configured"))
			return
		}
		record, err := currentAccount(c)
		if err != nil {
			response.Error(c, err)
			return
		}

		limitBody(c, h.uploads.MaxBytes()+1<<20)
		header, err := c.FormFile(field)
		if err != nil {
			if isBodyTooLarge(err) {
				response.Error(c, storage.ErrFileTooLarge)
				return
			}
			response.Error(c, appErrors.NewValidation(map[string]string{field: field + " file is required"}))
			return
		}
		if header.Size > h.uploads.MaxBytes() {
			response.Error(c, storage.ErrFileTooLarge)
			return
		}
		file, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("unable to read uploaded file"))
			return
		}
		defer file.Close()

		id := record.AccountBase().ID
		object, err := h.uploads.UploadImage(requestContext(c), path.Join(h.kind.Plural(), id, field), file)
		if err != nil {
			response.Error(c, err)
			return
		}

		updated, err := h.profiles.SetMediaURL(requestContext(c), h.kind, id, object.URL)
		if err != nil {
			if removeErr := h.uploads.Remove(context.WithoutCancel(requestContext(c)), object); removeErr != nil {
				_ = c.Error(fmt.Errorf("remove orphaned upload %s: %w", object.Key, removeErr))
			}
			response.Error(c, err)
			return
		}

		c.Header("ETag", etag(updated.AccountBase().Version))
		response.Success(c, http.StatusOK, gin.H{
			"user":   updated,
			"url":    object.URL,
			"object": object,
		})
	}
}
