package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CoverFiles resolves signed cover URLs issued by the local storage provider.
type CoverFiles interface {
	Verify(key, expires, signature string) bool
	FilePath(key string) (string, error)
}

// CoversController serves locally stored covers. OSS covers are fetched
// from the bucket directly and never reach this handler.
type CoversController struct {
	files CoverFiles
}

func NewCoversController(files CoverFiles) *CoversController {
	return &CoversController{files: files}
}

// Serve streams a cover if its URL signature is valid and unexpired
// GET /covers/*key
func (cc *CoversController) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || !cc.files.Verify(key, c.Query("expires"), c.Query("signature")) {
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Invalid or expired cover link", Code: "forbidden"})
		return
	}

	path, err := cc.files.FilePath(key)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "Cover not found", Code: "not_found"})
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}
