package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"civicsync/media"
	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/storage"
	"civicsync/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// as attaches a fixed session the way SessionMiddleware would.
func as(session models.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.SessionContextKey, session)
		c.Next()
	}
}

var citizen = models.Session{Role: models.RoleUser, Token: "t", Name: "Asha"}

func issueRouter(ic *IssueController) *gin.Engine {
	r := gin.New()
	r.GET("/api/issues", ic.GetAllIssues)
	r.GET("/api/issues/:id", ic.GetIssue)
	r.POST("/api/issues", as(citizen), ic.CreateIssue)
	r.PATCH("/api/issues/:id/status", ic.UpdateStatus)
	r.PATCH("/api/issues/:id/assign", ic.AssignIssue)
	r.POST("/api/issues/:id/upvote", ic.UpvoteIssue)
	r.DELETE("/api/issues", ic.ClearIssues)
	r.GET("/api/analytics", ic.GetAnalytics)
	return r
}

func newIssueController(t *testing.T) (*IssueController, *store.IssueStore) {
	t.Helper()
	issues := store.NewIssueStore(context.Background(), storage.NewMemory(), store.DefaultIssuesKey,
		store.WithLogger(quietLogger()))
	return NewIssueController(issues, quietLogger()), issues
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const potholeBody = `{"title":"Pothole on Main St","description":"Deep pothole near the crossing","location":"Main St & 3rd Ave","category":"Roads"}`

func createIssue(t *testing.T, r http.Handler, body string) models.Issue {
	t.Helper()
	w := do(r, http.MethodPost, "/api/issues", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Issue](t, w)
}

func TestCreateIssue(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)

	created := createIssue(t, r, potholeBody)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusNew, created.Status)
	assert.Equal(t, 0, created.Upvotes)
	require.NotNil(t, created.Reporter)
	assert.Equal(t, "Asha", created.Reporter.Name)
	assert.Len(t, issues.All(), 1)
}

func TestCreateIssue_ValidationFailsBeforeStore(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "short title", body: `{"title":"ab","description":"Deep pothole near the crossing","location":"Main","category":"Roads"}`, field: "title"},
		{name: "short description", body: `{"title":"Pothole","description":"short","location":"Main","category":"Roads"}`, field: "description"},
		{name: "missing location", body: `{"title":"Pothole","description":"Deep pothole near the crossing","category":"Roads"}`, field: "location"},
		{name: "unknown category", body: `{"title":"Pothole","description":"Deep pothole near the crossing","location":"Main","category":"Parks"}`, field: "category"},
		{name: "unknown urgency", body: `{"title":"Pothole","description":"Deep pothole near the crossing","location":"Main","category":"Roads","urgency":"urgent"}`, field: "urgency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/issues", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			body := decode[struct {
				Fields map[string]string `json:"fields"`
			}](t, w)
			assert.Contains(t, body.Fields, tt.field)
		})
	}
	assert.Empty(t, issues.All())
}

func TestCreateIssue_WhitespaceOnlyFieldsAreRejected(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)

	w := do(r, http.MethodPost, "/api/issues",
		`{"title":"     ","description":"             ","location":"   ","category":"Roads"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Contains(t, body.Fields, "title")
	assert.Contains(t, body.Fields, "description")
	assert.Contains(t, body.Fields, "location")
	assert.Empty(t, issues.All())
}

func TestCreateIssue_PaddingDoesNotCountTowardLength(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)

	w := do(r, http.MethodPost, "/api/issues",
		`{"title":"  ab  ","description":"Deep pothole near the crossing","location":"Main","category":"Roads"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, issues.All())

	created := createIssue(t, r,
		`{"title":"  Pothole  ","description":" Deep pothole near the crossing ","location":" Main St ","category":"Roads"}`)
	assert.Equal(t, "Pothole", created.Title)
	assert.Equal(t, "Deep pothole near the crossing", created.Description)
	assert.Equal(t, "Main St", created.Location)
}

func TestCreateIssue_BadMediaIsRejectedBySchema(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)

	body := `{"title":"Pothole","description":"Deep pothole near the crossing","location":"Main","category":"Roads","media":[{"url":"not a url","type":"image"}]}`
	w := do(r, http.MethodPost, "/api/issues", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, issues.All())
}

func TestCreateIssue_PersistFailureIs500(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := storage.NewMockKeyValue(ctrl)
	kv.EXPECT().Get(gomock.Any(), store.DefaultIssuesKey).Return("", false, nil)
	kv.EXPECT().Set(gomock.Any(), store.DefaultIssuesKey, gomock.Any()).Return(errors.New("disk full"))

	issues := store.NewIssueStore(context.Background(), kv, store.DefaultIssuesKey, store.WithLogger(quietLogger()))
	r := issueRouter(NewIssueController(issues, quietLogger()))

	w := do(r, http.MethodPost, "/api/issues", potholeBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Something went wrong"}`, w.Body.String())
	assert.Empty(t, issues.All())
}

func TestGetAllIssues_FiltersAndPaginates(t *testing.T) {
	ic, _ := newIssueController(t)
	r := issueRouter(ic)

	for i := 0; i < 12; i++ {
		createIssue(t, r, potholeBody)
	}
	createIssue(t, r, `{"title":"Broken streetlight","description":"Light has been out for a week","location":"Oak Ave","category":"Electricity"}`)

	type page struct {
		Issues      []models.Issue `json:"issues"`
		TotalIssues int            `json:"totalIssues"`
		TotalPages  int            `json:"totalPages"`
		CurrentPage int            `json:"currentPage"`
	}

	all := decode[page](t, do(r, http.MethodGet, "/api/issues", ""))
	assert.Equal(t, 13, all.TotalIssues)
	assert.Equal(t, 2, all.TotalPages)
	assert.Equal(t, 1, all.CurrentPage)
	assert.Len(t, all.Issues, 10)
	assert.Equal(t, "Broken streetlight", all.Issues[0].Title)

	second := decode[page](t, do(r, http.MethodGet, "/api/issues?page=2", ""))
	assert.Len(t, second.Issues, 3)

	lights := decode[page](t, do(r, http.MethodGet, "/api/issues?category=Electricity&query=oak", ""))
	require.Len(t, lights.Issues, 1)
	assert.Equal(t, models.Electricity, lights.Issues[0].Category)

	none := decode[page](t, do(r, http.MethodGet, "/api/issues?status=resolved", ""))
	assert.Equal(t, 0, none.TotalIssues)
	assert.Empty(t, none.Issues)
}

func TestGetIssue(t *testing.T) {
	ic, _ := newIssueController(t)
	r := issueRouter(ic)
	created := createIssue(t, r, potholeBody)

	w := do(r, http.MethodGet, "/api/issues/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[models.Issue](t, w).ID)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/issues/missing", "").Code)
}

func TestUpdateStatus(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)
	created := createIssue(t, r, potholeBody)

	w := do(r, http.MethodPatch, "/api/issues/"+created.ID+"/status", `{"status":"resolved"}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Issue](t, w)
	assert.Equal(t, models.StatusResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)

	w = do(r, http.MethodPatch, "/api/issues/"+created.ID+"/status", `{"status":"closed"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stored, _ := issues.Get(created.ID)
	assert.Equal(t, models.StatusResolved, stored.Status)
}

func TestMutationsOnUnknownIDSucceed(t *testing.T) {
	ic, _ := newIssueController(t)
	r := issueRouter(ic)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/api/issues/nope/status", `{"status":"in_progress"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/api/issues/nope/assign", `{"assignee":"Crew 7"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/issues/nope/upvote", "").Code)
}

func TestAssignIssue(t *testing.T) {
	ic, _ := newIssueController(t)
	r := issueRouter(ic)
	created := createIssue(t, r, potholeBody)

	w := do(r, http.MethodPatch, "/api/issues/"+created.ID+"/assign", `{"assignee":" Crew 7 "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assigned := decode[models.Issue](t, w)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, "Crew 7", *assigned.AssignedTo)

	w = do(r, http.MethodPatch, "/api/issues/"+created.ID+"/assign", `{"assignee":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[models.Issue](t, w).AssignedTo)
}

func TestUpvoteIssue(t *testing.T) {
	ic, _ := newIssueController(t)
	r := issueRouter(ic)
	created := createIssue(t, r, potholeBody)

	do(r, http.MethodPost, "/api/issues/"+created.ID+"/upvote", "")
	w := do(r, http.MethodPost, "/api/issues/"+created.ID+"/upvote", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.Issue](t, w).Upvotes)
}

func TestClearIssues(t *testing.T) {
	ic, issues := newIssueController(t)
	r := issueRouter(ic)
	createIssue(t, r, potholeBody)

	w := do(r, http.MethodDelete, "/api/issues", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, issues.All())
}

func TestGetAnalytics(t *testing.T) {
	ic, _ := newIssueController(t)
	ic.now = func() time.Time { return time.Now().UTC() }
	r := issueRouter(ic)

	first := createIssue(t, r, potholeBody)
	createIssue(t, r, potholeBody)
	do(r, http.MethodPost, "/api/issues/"+first.ID+"/upvote", "")
	do(r, http.MethodPatch, "/api/issues/"+first.ID+"/status", `{"status":"resolved"}`)

	w := do(r, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.IssueAnalytics](t, w)

	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.ByStatus[models.StatusResolved])
	assert.Equal(t, 1, got.OpenIssues)
	assert.NotNil(t, got.AvgResolutionHours)
	require.Len(t, got.Last7Days, 7)
	assert.Equal(t, 2, got.Last7Days[6].Count)
	require.NotEmpty(t, got.TopVoted)
	assert.Equal(t, first.ID, got.TopVoted[0].ID)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *store.SessionStore) {
	t.Helper()
	sessions := store.NewSessionStore(context.Background(), storage.NewMemory(), store.DefaultSessionKey,
		store.WithLogger(quietLogger()))
	ac := NewAuthController(sessions, quietLogger())

	r := gin.New()
	r.POST("/api/auth/login", ac.LoginUser)
	r.POST("/api/auth/logout", ac.LogoutUser)
	r.GET("/api/auth/me", middlewares.SessionMiddleware(sessions), ac.GetMe)
	return r, sessions
}

func TestAuthFlow(t *testing.T) {
	r, sessions := newAuthRouter(t)

	w := do(r, http.MethodPost, "/api/auth/login", `{"role":"authority","name":"Ward Office"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode[models.Session](t, w)
	assert.Equal(t, models.RoleAuthority, session.Role)
	require.NotEmpty(t, session.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.JSONEq(t, `{"role":"authority","name":"Ward Office"}`, me.Body.String())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/auth/logout", "").Code)
	_, ok := sessions.Current()
	assert.False(t, ok)
}

func TestLoginUser_RejectsUnknownRole(t *testing.T) {
	r, sessions := newAuthRouter(t)

	w := do(r, http.MethodPost, "/api/auth/login", `{"role":"admin"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, ok := sessions.Current()
	assert.False(t, ok)
}

func TestLoginUser_KeepsSuppliedToken(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := do(r, http.MethodPost, "/api/auth/login", `{"role":"user","token":"demo-token"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo-token", decode[models.Session](t, w).Token)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestUploadMedia_InlinesWithoutHost(t *testing.T) {
	mc := NewMediaController(media.NewUploader(media.Config{}, media.WithLogger(quietLogger())), quietLogger())
	r := gin.New()
	r.POST("/api/media", mc.UploadMedia)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("files", "pothole.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Media    []models.Media  `json:"media"`
		Failures []media.Failure `json:"failures"`
	}](t, w)
	require.Len(t, got.Media, 1)
	assert.Equal(t, models.MediaImage, got.Media[0].Type)
	assert.Contains(t, got.Media[0].URL, "data:image/png;base64,")
	assert.Empty(t, got.Failures)
}

func TestUploadMedia_RequiresFiles(t *testing.T) {
	mc := NewMediaController(media.NewUploader(media.Config{}), quietLogger())
	r := gin.New()
	r.POST("/api/media", mc.UploadMedia)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("note", "nothing attached"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
