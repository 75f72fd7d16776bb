package http

import (
	"errors"
	"net/http"
	"strconv"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/internal/scoring/service"
	"dao-governance-scorer/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EvaluationHandler handles HTTP requests for proposal evaluations.
type EvaluationHandler struct {
	evaluationService service.EvaluationService
	logger            *logger.Logger
}

// NewEvaluationHandler creates a new EvaluationHandler.
func NewEvaluationHandler(evaluationService service.EvaluationService, logger *logger.Logger) *EvaluationHandler {
	return &EvaluationHandler{evaluationService: evaluationService, logger: logger}
}

// RegisterRoutes registers the evaluation routes to the Echo group.
func (h *EvaluationHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/evaluations", h.EvaluateProposals)
	g.GET("/leaderboard", h.GetLeaderboard)
	g.GET("/alerts", h.GetAlerts)
	g.GET("/proposals/:id/evaluations", h.GetProposalEvaluations)
}

// EvaluateProposals scores a batch of proposal signals and returns the ranking.
func (h *EvaluationHandler) EvaluateProposals(c echo.Context) error {
	var req dto.EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	resp, err := h.evaluationService.Evaluate(c.Request().Context(), req)
	if err != nil {
		return h.errorResponse(c, "Failed to evaluate proposals", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetLeaderboard returns the top proposals by latest overall score.
func (h *EvaluationHandler) GetLeaderboard(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = parsed
	}

	resp, err := h.evaluationService.Leaderboard(c.Request().Context(), limit)
	if err != nil {
		return h.errorResponse(c, "Failed to get leaderboard", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAlerts returns stored alerts, optionally filtered by severity and proposal.
func (h *EvaluationHandler) GetAlerts(c echo.Context) error {
	param := dto.AlertParam{ProposalID: c.QueryParam("proposal_id")}

	if raw := c.QueryParam("severity"); raw != "" {
		severity, ok := governance.ParseSeverity(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid severity"})
		}
		param.Severity = severity
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		param.Limit = limit
	}

	alerts, err := h.evaluationService.Alerts(c.Request().Context(), param)
	if err != nil {
		return h.errorResponse(c, "Failed to get alerts", err)
	}
	return c.JSON(http.StatusOK, alerts)
}

// GetProposalEvaluations returns the evaluation history of one proposal.
func (h *EvaluationHandler) GetProposalEvaluations(c echo.Context) error {
	history, err := h.evaluationService.ProposalHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.errorResponse(c, "Failed to get proposal evaluations", err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *EvaluationHandler) errorResponse(c echo.Context, msg string, err error) error {
	if errors.Is(err, governance.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	h.logger.ErrorContext(c.Request().Context(), msg, logger.ErrorField(err))
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg})
}
