package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StartResearchRequest is the request body for
// POST /api/v1/projects/:id/research.
type StartResearchRequest struct {
	CompanyURL string `json:"companyUrl"`
}

func (s *Server) handleListResearch(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, id, actorID(c)); err != nil {
		return mapError(err)
	}
	research, err := s.store.ListProjectResearch(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, research)
}

// handleStartResearch starts a research run. The response carries the record
// in searching; clients poll for the terminal state.
func (s *Server) handleStartResearch(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req StartResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	research, err := s.research.Start(c.Request().Context(), actorID(c), projectID, req.CompanyURL)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusAccepted, research)
}

func (s *Server) handleGetResearch(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	researchID, err := pathID(c, "researchID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	research, err := s.store.GetResearch(ctx, researchID, projectID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, research)
}

func (s *Server) handleDeleteResearch(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	researchID, err := pathID(c, "researchID")
	if err != nil {
		return err
	}
	if err := s.research.Delete(c.Request().Context(), actorID(c), projectID, researchID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListFindings(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	researchID, err := pathID(c, "researchID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	if _, err := s.store.GetResearch(ctx, researchID, projectID); err != nil {
		return mapError(err)
	}
	findings, err := s.store.ListFindings(ctx, researchID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, findings)
}
