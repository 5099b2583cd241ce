package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/productflow/internal/billing"
)

// UsageResponse is the response body for GET /api/v1/billing/usage.
type UsageResponse struct {
	Plan  billing.Plan   `json:"plan"`
	Usage *billing.Usage `json:"usage"`
}

func (s *Server) handleListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, billing.Plans)
}

func (s *Server) handleUsage(c echo.Context) error {
	ctx := c.Request().Context()
	userID := actorID(c)

	plan, err := s.limiter.Plan(ctx, userID)
	if err != nil {
		return mapError(err)
	}
	usage, err := s.limiter.Usage(ctx, userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, UsageResponse{Plan: plan, Usage: usage})
}
