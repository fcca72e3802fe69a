package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// SPAFallback serves files from dir for unmatched GET requests and falls back
// to dir/index.html so client-side routes load the app. API paths and other
// methods get the JSON 404.
func SPAFallback(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		isRead := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead
		if !isRead || p == "/api" || strings.HasPrefix(p, "/api/") || dir == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		if rel := path.Clean("/" + p); rel != "/" {
			f := filepath.Join(dir, filepath.FromSlash(rel))
			if st, err := os.Stat(f); err == nil && !st.IsDir() {
				c.File(f)
				return
			}
		}

		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(index)
	}
}
