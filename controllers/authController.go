package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/store"
)

// AuthController signs the single demo identity in and out. No credential
// is checked; the chosen role is trusted.
type AuthController struct {
	sessions *store.SessionStore
	logger   *log.Logger
}

func NewAuthController(sessions *store.SessionStore, logger *log.Logger) *AuthController {
	return &AuthController{sessions: sessions, logger: logger}
}

type loginInput struct {
	Role  models.Role `json:"role" binding:"required,oneof=user authority"`
	Token string      `json:"token" binding:"max=512"`
	Name  string      `json:"name" binding:"max=50"`
}

func (in *loginInput) trim() {
	in.Token = strings.TrimSpace(in.Token)
	in.Name = strings.TrimSpace(in.Name)
}

// LoginUser replaces the current session and returns it with its token.
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input loginInput
	if err := bindTrimmed(c, &input); err != nil {
		badRequest(c, err)
		return
	}

	session, err := ac.sessions.Login(c.Request.Context(), models.Session{
		Role:  input.Role,
		Token: input.Token,
		Name:  input.Name,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidRole) {
			badRequest(c, err)
			return
		}
		serverError(c, ac.logger, "signing in failed", err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetMe returns the authenticated session without its token.
func (ac *AuthController) GetMe(c *gin.Context) {
	session, ok := middlewares.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	session.Token = ""
	c.JSON(http.StatusOK, session)
}

// LogoutUser clears the session.
func (ac *AuthController) LogoutUser(c *gin.Context) {
	if err := ac.sessions.Logout(c.Request.Context()); err != nil {
		serverError(c, ac.logger, "signing out failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
