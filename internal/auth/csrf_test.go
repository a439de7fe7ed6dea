package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCSRFRouter() *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware([]byte("test-secret-key-32-bytes-long!!!"), false))
	router.GET("/api/csrf", CSRFTokenHandler)
	router.POST("/api/books", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestCSRFMiddleware_IssuesTokenOnSafeMethods(t *testing.T) {
	router := newCSRFRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/csrf", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Token   string `json:"csrf_token"`
		Enabled bool   `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.True(t, body.Enabled)
	assert.Equal(t, body.Token, rr.Header().Get(CSRFTokenHeader))
}

func TestCSRFMiddleware_RejectsPostWithoutToken(t *testing.T) {
	router := newCSRFRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/books", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"CSRF token invalid or missing"}`, rr.Body.String())
}

func TestCSRFTokenHandler_Disabled(t *testing.T) {
	router := gin.New()
	router.GET("/api/csrf", CSRFTokenHandler)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/csrf", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"csrf_token":"","enabled":false}`, rr.Body.String())
}
