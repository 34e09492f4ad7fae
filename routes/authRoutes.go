package routes

import (
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, authController *controllers.AuthController, requireSession gin.HandlerFunc) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authController.LoginUser)
		auth.POST("/logout", authController.LogoutUser)
		auth.GET("/me", requireSession, authController.GetMe)
	}
}
