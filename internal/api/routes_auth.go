package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campusbridge/onboard/internal/handlers"
	"github.com/campusbridge/onboard/internal/models"
)

type accountRouteDeps struct {
	Kind         models.AccountKind
	MediaField   string
	AuthHandler  *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	RequireAuth  gin.HandlerFunc
	DomainPolicy gin.HandlerFunc
	AuthLimit    gin.HandlerFunc
}

func registerAccountRoutes(group *gin.RouterGroup, deps accountRouteDeps) {
	auth := group.Group("/auth")
	auth.Use(deps.AuthLimit)
	{
		auth.POST("/signup", deps.DomainPolicy, deps.AuthHandler.Signup)
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/logout", deps.AuthHandler.Logout)
		auth.POST("/verify", deps.AuthHandler.Verify)
		auth.POST("/resend-code", deps.AuthHandler.Resend)
	}

	group.POST("/verify", deps.AuthLimit, deps.AuthHandler.Verify)
	group.POST("/resend-code", deps.AuthLimit, deps.AuthHandler.Resend)

	me := group.Group("")
	me.Use(deps.RequireAuth)
	registerProfileRoutes(me, deps)
}

func registerPasswordRoutes(api *gin.RouterGroup, handler *handlers.PasswordHandler, limit gin.HandlerFunc) {
	auth := api.Group("/auth")
	auth.Use(limit)
	{
		auth.POST("/forgot-password", handler.ForgotPassword)
		auth.POST("/reset-password", handler.ResetPassword)
	}
}
