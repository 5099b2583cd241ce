package httpapi

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/productflow/internal/store"
)

// UploadFileRequest is the request body for POST /api/v1/projects/:id/files.
// Content is base64-encoded.
type UploadFileRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

func (s *Server) handleListFiles(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, id, actorID(c)); err != nil {
		return mapError(err)
	}
	files, err := s.store.ListProjectFiles(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, files)
}

func (s *Server) handleUploadFile(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UploadFileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FileName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fileName is required")
	}
	if req.FileType != store.FileTypeTranscript && req.FileType != store.FileTypeUsageData {
		return echo.NewHTTPError(http.StatusBadRequest, "fileType must be transcript or usage_data")
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content must be base64-encoded")
	}

	ctx := c.Request().Context()
	userID := actorID(c)

	if _, err := s.store.GetProject(ctx, projectID, userID); err != nil {
		return mapError(err)
	}
	if err := s.limiter.CheckFile(ctx, userID, projectID); err != nil {
		return mapError(err)
	}

	suffix := uuid.NewString()[:8]
	fileKey := fmt.Sprintf("projects/%d/files/%s-%s", projectID, suffix, req.FileName)
	url, err := s.blobs.Put(ctx, fileKey, data, req.MimeType)
	if err != nil {
		return mapError(err)
	}

	file := &store.DataFile{
		ProjectID: projectID,
		UserID:    userID,
		FileName:  req.FileName,
		FileType:  req.FileType,
		FileKey:   fileKey,
		FileURL:   url,
		FileSize:  int64(len(data)),
		MimeType:  req.MimeType,
	}
	if err := s.store.CreateDataFile(ctx, file); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, file)
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fileID, err := pathID(c, "fileID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	if err := s.store.DeleteDataFile(ctx, fileID, projectID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
