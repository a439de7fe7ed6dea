package maintenance

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

func newRouter(readOnly bool) *gin.Engine {
	router := gin.New()
	router.Use(NewMiddleware(readOnly).Handler())
	ok := func(c *gin.Context) { c.String(http.StatusOK, "OK") }
	router.GET("/api/books", ok)
	router.POST("/api/books", ok)
	router.DELETE("/api/books/:id", ok)
	router.POST("/api/users/login", ok)
	router.POST("/api/users/login/google", ok)
	router.POST("/api/users/logout", ok)
	router.POST("/api/users/loginx", ok)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestMiddleware_Disabled(t *testing.T) {
	router := newRouter(false)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/books").Code)
	assert.False(t, NewMiddleware(false).ReadOnly())
}

func TestMiddleware_BlocksWrites(t *testing.T) {
	router := newRouter(true)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/books"},
		{http.MethodDelete, "/api/books/3"},
		{http.MethodPost, "/api/users/loginx"},
	} {
		w := serve(router, tc.method, tc.path)
		require.Equal(t, http.StatusServiceUnavailable, w.Code, "%s %s", tc.method, tc.path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, blockedMessage, body["error"])
		assert.Equal(t, true, body["read_only"])
	}
}

func TestMiddleware_AllowsReadsAndSessions(t *testing.T) {
	router := newRouter(true)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/books").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/users/login").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/users/login/google").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/users/logout").Code)
}
