package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// uploadHandler handles POST /api/uploads (multipart form, field "file").
// The stored file ID is what the document tools accept as file_id.
func (s *Server) uploadHandler(c *echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer src.Close()

	file, err := s.uploads.Save(fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		return mapUploadError(c, err)
	}

	return c.JSON(http.StatusCreated, &UploadResponse{
		FileID:   file.ID,
		Filename: file.Name,
		Size:     file.Size,
	})
}
