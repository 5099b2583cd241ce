package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/productflow/internal/store"
)

// ─── Analyses ───

func (s *Server) handleListAnalyses(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, id, actorID(c)); err != nil {
		return mapError(err)
	}
	analyses, err := s.store.ListProjectAnalyses(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, analyses)
}

// handleRunAnalysis starts an analysis run. The response carries the record
// in processing; clients poll for the terminal state.
func (s *Server) handleRunAnalysis(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	analysis, err := s.insights.RunAnalysis(c.Request().Context(), actorID(c), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusAccepted, analysis)
}

func (s *Server) handleGetAnalysis(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	analysisID, err := pathID(c, "analysisID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	analysis, err := s.store.GetAnalysis(ctx, analysisID, projectID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, analysis)
}

// ─── Proposals ───

// GenerateProposalsRequest is the request body for
// POST /api/v1/projects/:id/proposals.
type GenerateProposalsRequest struct {
	AnalysisID uint `json:"analysisId"`
}

// UpdateStatusRequest is the request body for proposal and task status
// updates.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleListProposals(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, id, actorID(c)); err != nil {
		return mapError(err)
	}
	proposals, err := s.store.ListProjectProposals(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, proposals)
}

func (s *Server) handleGenerateProposals(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req GenerateProposalsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AnalysisID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "analysisId is required")
	}

	proposals, err := s.insights.GenerateProposals(c.Request().Context(), actorID(c), projectID, req.AnalysisID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, proposals)
}

func (s *Server) handleGetProposal(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	proposal, err := s.store.GetProposal(ctx, proposalID, projectID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, proposal)
}

func (s *Server) handleUpdateProposalStatus(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	switch req.Status {
	case store.ProposalDraft, store.ProposalApproved, store.ProposalRejected,
		store.ProposalInProgress, store.ProposalCompleted:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid proposal status")
	}

	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	if _, err := s.store.GetProposal(ctx, proposalID, projectID); err != nil {
		return mapError(err)
	}
	if err := s.store.UpdateProposalStatus(ctx, proposalID, req.Status); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ─── Tasks ───

func (s *Server) handleListProjectTasks(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, id, actorID(c)); err != nil {
		return mapError(err)
	}
	tasks, err := s.store.ListProjectTasks(ctx, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleListProposalTasks(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	if _, err := s.store.GetProposal(ctx, proposalID, projectID); err != nil {
		return mapError(err)
	}
	tasks, err := s.store.ListProposalTasks(ctx, proposalID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGenerateTasks(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}
	tasks, err := s.insights.GenerateTasks(c.Request().Context(), actorID(c), projectID, proposalID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, tasks)
}

func (s *Server) handleUpdateTaskStatus(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "taskID")
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	switch req.Status {
	case store.TaskTodo, store.TaskInProgress, store.TaskDone:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid task status")
	}

	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, projectID, actorID(c)); err != nil {
		return mapError(err)
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, projectID, req.Status); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
