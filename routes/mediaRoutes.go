package routes

import (
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
)

func MediaRoutes(r *gin.Engine, mediaController *controllers.MediaController, requireSession gin.HandlerFunc) {
	r.POST("/api/media", requireSession, mediaController.UploadMedia)
}
