//go:build !embed
// +build !embed

package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	applog "orderbot/internal/log"
)

// setupStaticFiles serves the chat widget from disk for development
func setupStaticFiles(router *gin.Engine) {
	logger := applog.WithComponent("static")
	logger.Info().
		Str("dir", "./web").
		Msg("serving chat widget from the local filesystem (development mode)")

	router.Static("/static", "./web/static")
	router.StaticFile("/", "./web/index.html")

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not found",
			"hint":  "Build the widget into web/dist and run with -tags embed to serve it from the binary",
		})
	})
}
