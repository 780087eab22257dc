package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/auth"
)

// AuthHandler handles login requests
type AuthHandler struct {
	authenticator auth.Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authenticator auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

// Login validates credentials and issues a session
func (h *AuthHandler) Login(c *gin.Context) {
	var body LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	session, err := h.authenticator.Authenticate(c.Request.Context(), body.Username, body.Secret)
	if err != nil {
		if errors.Is(err, auth.ErrDenied) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Error().Err(err).Msg("Authentication backend failure")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// RegisterRoutes registers the handler's routes
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/login", h.Login)
}
