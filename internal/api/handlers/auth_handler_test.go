package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/auth"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewAuthHandler(auth.NewStaticAuthenticator(map[string]string{
		"harold": "beans",
	}))
	handler.RegisterRoutes(router)
	return router
}

func TestLoginIssuesSession(t *testing.T) {
	router := authRouter()

	rec := doJSON(router, http.MethodPost, "/api/login", gin.H{
		"username": "Harold",
		"secret":   "beans",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "HAROLD", session.Username)
	assert.NotEmpty(t, session.Token)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := authRouter()

	rec := doJSON(router, http.MethodPost, "/api/login", gin.H{
		"username": "harold",
		"secret":   "cups",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
