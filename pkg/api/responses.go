package api

import "github.com/newsdesk-ai/newsdesk/pkg/rss"

// HealthCheck is one component's health in the health response.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// TitleResponse is returned by the title endpoints.
type TitleResponse struct {
	Title string `json:"title"`
}

// UploadResponse is returned by POST /api/uploads.
type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// RSSCacheResponse is returned by POST /api/agent/rss-cache/generate.
type RSSCacheResponse struct {
	Summary rss.ArtifactSummary `json:"summary"`
}
