package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"civicsync/analytics"
	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/schema"
	"civicsync/store"
)

// IssueController serves the issue collection and its derived views.
type IssueController struct {
	issues *store.IssueStore
	logger *log.Logger
	now    func() time.Time
}

func NewIssueController(issues *store.IssueStore, logger *log.Logger) *IssueController {
	return &IssueController{issues: issues, logger: logger, now: time.Now}
}

type createIssueInput struct {
	Title       string               `json:"title" binding:"required,min=3,max=200"`
	Description string               `json:"description" binding:"required,min=10,max=1000"`
	Location    string               `json:"location" binding:"required,min=3,max=200"`
	Category    models.IssueCategory `json:"category" binding:"required,oneof=Roads Water Electricity Sanitation Safety Environment Other"`
	Urgency     *models.Urgency      `json:"urgency" binding:"omitempty,oneof=low medium high"`
	Media       []models.Media       `json:"media"`
	Reporter    *models.Reporter     `json:"reporter"`
	TokenReward float64              `json:"tokenReward" binding:"gte=0"`
}

func (in *createIssueInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if in.Reporter != nil {
		in.Reporter.Name = strings.TrimSpace(in.Reporter.Name)
		in.Reporter.Email = strings.TrimSpace(in.Reporter.Email)
	}
}

// CreateIssue files a new issue on behalf of the signed-in citizen.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var input createIssueInput
	if err := bindTrimmed(c, &input); err != nil {
		badRequest(c, err)
		return
	}

	reporter := input.Reporter
	if reporter == nil {
		if session, ok := middlewares.CurrentSession(c); ok && session.Name != "" {
			reporter = &models.Reporter{Name: session.Name}
		}
	}

	issue, err := ic.issues.Create(c.Request.Context(), models.IssueInput{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		Urgency:     input.Urgency,
		Media:       input.Media,
		Reporter:    reporter,
		TokenReward: input.TokenReward,
	})
	if err != nil {
		if errors.Is(err, schema.ErrInvalid) {
			badRequest(c, err)
			return
		}
		serverError(c, ic.logger, "creating issue failed", err)
		return
	}

	c.JSON(http.StatusCreated, issue)
}

// GetAllIssues returns one page of the filtered collection, newest first.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	criteria := models.IssueFilters{
		Query:    c.Query("query"),
		Status:   c.DefaultQuery("status", models.FilterAll),
		Category: c.DefaultQuery("category", models.FilterAll),
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filtered := ic.issues.Filtered(criteria)
	issues, totalPages := analytics.Paginate(filtered, page, limit)
	if page < 1 {
		page = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":      issues,
		"totalIssues": len(filtered),
		"totalPages":  totalPages,
		"currentPage": page,
	})
}

// GetIssue retrieves an issue by its ID
func (ic *IssueController) GetIssue(c *gin.Context) {
	issue, ok := ic.issues.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}
	c.JSON(http.StatusOK, issue)
}

type updateStatusInput struct {
	Status models.IssueStatus `json:"status" binding:"required,oneof=new in_progress resolved"`
}

// UpdateStatus moves an issue to any workflow status.
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	var input updateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if err := ic.issues.UpdateStatus(c.Request.Context(), id, input.Status); err != nil {
		if errors.Is(err, store.ErrInvalidStatus) {
			badRequest(c, err)
			return
		}
		serverError(c, ic.logger, "updating issue status failed", err)
		return
	}
	ic.respondWithIssue(c, id)
}

type assignInput struct {
	Assignee *string `json:"assignee"`
}

// AssignIssue sets or clears the assignee. A null or blank assignee clears.
func (ic *IssueController) AssignIssue(c *gin.Context) {
	var input assignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.Assignee != nil {
		trimmed := strings.TrimSpace(*input.Assignee)
		if trimmed == "" {
			input.Assignee = nil
		} else {
			input.Assignee = &trimmed
		}
	}

	id := c.Param("id")
	if err := ic.issues.Assign(c.Request.Context(), id, input.Assignee); err != nil {
		serverError(c, ic.logger, "assigning issue failed", err)
		return
	}
	ic.respondWithIssue(c, id)
}

// UpvoteIssue adds one vote.
func (ic *IssueController) UpvoteIssue(c *gin.Context) {
	id := c.Param("id")
	if err := ic.issues.Upvote(c.Request.Context(), id); err != nil {
		serverError(c, ic.logger, "upvoting issue failed", err)
		return
	}
	ic.respondWithIssue(c, id)
}

// ClearIssues removes every issue.
func (ic *IssueController) ClearIssues(c *gin.Context) {
	if err := ic.issues.ClearAll(c.Request.Context()); err != nil {
		serverError(c, ic.logger, "clearing issues failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All issues cleared"})
}

// GetAnalytics returns dashboard stats plus the daily and top-voted series.
func (ic *IssueController) GetAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, analytics.Analytics(ic.issues.All(), ic.now()))
}

// Mutations on an unknown id change nothing and still succeed.
func (ic *IssueController) respondWithIssue(c *gin.Context, id string) {
	issue, ok := ic.issues.Get(id)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "No issue with that id, nothing changed"})
		return
	}
	c.JSON(http.StatusOK, issue)
}
