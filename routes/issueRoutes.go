package routes

import (
	"github.com/gin-gonic/gin"

	"civicsync/controllers"
	"civicsync/middlewares"
	"civicsync/models"
)

// IssueRoutes sets up the issue and analytics routes
func IssueRoutes(r *gin.Engine, issueController *controllers.IssueController, requireSession, createLimit gin.HandlerFunc) {
	authority := middlewares.RequireRole(models.RoleAuthority)

	issue := r.Group("/api/issues")
	{
		issue.GET("", issueController.GetAllIssues)
		issue.GET("/:id", issueController.GetIssue)
		issue.POST("", requireSession, middlewares.RequireRole(models.RoleUser), createLimit, issueController.CreateIssue)
		issue.PATCH("/:id/status", requireSession, authority, issueController.UpdateStatus)
		issue.PATCH("/:id/assign", requireSession, authority, issueController.AssignIssue)
		issue.POST("/:id/upvote", requireSession, issueController.UpvoteIssue)
		issue.DELETE("", requireSession, authority, issueController.ClearIssues)
	}

	r.GET("/api/analytics", requireSession, authority, issueController.GetAnalytics)
}
