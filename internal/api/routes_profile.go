package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/internal/models"
)

func registerProfileRoutes(group *gin.RouterGroup, deps accountRouteDeps) {
	handler := deps.Profile

	group.GET("/profile", handler.Me)
	group.GET("/me", handler.Me)
	group.GET("/me/progress", handler.Progress)
	group.GET("/me/wizard/:step", handler.Step)
	group.PATCH("/me/:section", handler.UpdateSection)

	if deps.MediaField != "" {
		group.POST("/me/"+deps.MediaField, handler.UploadMedia(deps.MediaField))
	}
	if deps.Kind == models.KindStudent {
		group.POST("/me/achievements", handler.ReplaceAchievements)
	}
}
