package routes

import (
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
	"civicsync/media"
	"civicsync/middlewares"
	"civicsync/store"
)

// Dependencies is everything the HTTP surface needs, built once in main.
type Dependencies struct {
	Issues      *store.IssueStore
	Sessions    *store.SessionStore
	Uploader    *media.Uploader
	Limiter     middlewares.IssueLimiter
	Logger      *log.Logger
	CORSOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))

	requireSession := middlewares.SessionMiddleware(deps.Sessions)

	AuthRoutes(r, controllers.NewAuthController(deps.Sessions, deps.Logger), requireSession)
	IssueRoutes(r, controllers.NewIssueController(deps.Issues, deps.Logger), requireSession,
		middlewares.IssueRateLimiter(deps.Limiter, deps.Logger))
	MediaRoutes(r, controllers.NewMediaController(deps.Uploader, deps.Logger), requireSession)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
