package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/productflow/internal/store"
)

// CreateProjectRequest is the request body for POST /api/v1/projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectRequest is the request body for PATCH /api/v1/projects/:id.
// Absent fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.store.ListProjects(c.Request().Context(), actorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || len(req.Name) > 255 {
		return echo.NewHTTPError(http.StatusBadRequest, "name must be 1-255 characters")
	}

	ctx := c.Request().Context()
	userID := actorID(c)

	if err := s.limiter.CheckProject(ctx, userID); err != nil {
		return mapError(err)
	}

	project := &store.Project{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      store.ProjectActive,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, project)
}

func (s *Server) handleGetProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	project, err := s.store.GetProject(c.Request().Context(), id, actorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name != nil && (*req.Name == "" || len(*req.Name) > 255) {
		return echo.NewHTTPError(http.StatusBadRequest, "name must be 1-255 characters")
	}
	if req.Status != nil && *req.Status != store.ProjectActive && *req.Status != store.ProjectArchived {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be active or archived")
	}

	update := store.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	}
	if err := s.store.UpdateProject(c.Request().Context(), id, actorID(c), update); err != nil {
		return mapError(err)
	}
	project, err := s.store.GetProject(c.Request().Context(), id, actorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(c.Request().Context(), id, actorID(c)); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleProjectStats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, id, actorID(c)); err != nil {
		return mapError(err)
	}
	stats, err := s.store.GetProjectStats(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
