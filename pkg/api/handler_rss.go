package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

// rssGenerateTimeout bounds on-demand cache generation; the scheduled
// rsscache job has no such limit.
const rssGenerateTimeout = 90 * time.Second

// generateRSSCacheHandler handles POST /api/agent/rss-cache/generate.
// Fetches all feeds and atomically replaces the news artifact the agent
// tools read from.
func (s *Server) generateRSSCacheHandler(c *echo.Context) error {
	artifact, err := s.rssCache.GenerateWithTimeout(c.Request().Context(), rssGenerateTimeout)
	if err != nil {
		return mapRSSError(c, err)
	}
	return c.JSON(http.StatusOK, &RSSCacheResponse{Summary: artifact.Summary})
}
