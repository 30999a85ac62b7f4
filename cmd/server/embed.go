//go:build embed
// +build embed

package main

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	applog "orderbot/internal/log"
)

//go:embed web/dist
var webDist embed.FS

// setupStaticFiles serves the embedded chat widget
func setupStaticFiles(router *gin.Engine) {
	logger := applog.WithComponent("static")
	logger.Info().Msg("using embedded chat widget assets")

	distFS, err := fs.Sub(webDist, "web/dist")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get dist subdirectory")
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}

		name := strings.TrimPrefix(path.Clean(c.Request.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		content, err := fs.ReadFile(distFS, name)
		if err != nil {
			// unknown paths get the widget shell
			name = "index.html"
			if content, err = fs.ReadFile(distFS, name); err != nil {
				c.String(http.StatusNotFound, "404 page not found")
				return
			}
		}

		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Data(http.StatusOK, contentType, content)
	})
}
