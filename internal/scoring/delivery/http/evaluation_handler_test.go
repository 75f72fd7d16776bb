package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluationService struct {
	evaluateReq  dto.EvaluateRequest
	evaluateErr  error
	leaderLimit  int
	alertParam   dto.AlertParam
	historyID    string
	historyErr   error
	leaderboard  *dto.LeaderboardResponse
	evaluateResp *dto.EvaluateResponse
}

func (s *stubEvaluationService) Evaluate(_ context.Context, req dto.EvaluateRequest) (*dto.EvaluateResponse, error) {
	s.evaluateReq = req
	if s.evaluateErr != nil {
		return nil, s.evaluateErr
	}
	return s.evaluateResp, nil
}

func (s *stubEvaluationService) Leaderboard(_ context.Context, limit int) (*dto.LeaderboardResponse, error) {
	s.leaderLimit = limit
	return s.leaderboard, nil
}

func (s *stubEvaluationService) Alerts(_ context.Context, param dto.AlertParam) ([]governance.Alert, error) {
	s.alertParam = param
	return []governance.Alert{{ID: "a-1", Severity: governance.SeverityHigh, Type: governance.AlertHighRisk, ProposalID: "P-1"}}, nil
}

func (s *stubEvaluationService) ProposalHistory(_ context.Context, proposalID string) ([]*dto.EvaluationHistoryResponse, error) {
	s.historyID = proposalID
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return []*dto.EvaluationHistoryResponse{{EvaluationID: "e-1", ProposalID: proposalID, OverallScore: 71}}, nil
}

func (s *stubEvaluationService) Rescore(_ context.Context) (*dto.EvaluateResponse, error) {
	return &dto.EvaluateResponse{}, nil
}

func newTestServer(svc *stubEvaluationService) *echo.Echo {
	e := echo.New()
	NewEvaluationHandler(svc, logger.NewNop()).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateProposals(t *testing.T) {
	svc := &stubEvaluationService{evaluateResp: &dto.EvaluateResponse{
		Leaderboard: []governance.CompositeScore{{ProposalID: "P-1", OverallScore: 73, Rating: governance.RatingGood}},
	}}
	e := newTestServer(svc)

	body := `{"limit": 3, "proposals": [{"proposal_id": "P-1", "risk_indicator": 0.2, "requested_amount": "50000", "total_treasury": 2000000}]}`
	rec := serve(e, http.MethodPost, "/api/v1/evaluations", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.evaluateReq.Limit)
	require.Len(t, svc.evaluateReq.Proposals, 1)
	got := svc.evaluateReq.Proposals[0]
	assert.Equal(t, "P-1", got.ProposalID)
	require.NotNil(t, got.RiskIndicator)
	assert.Equal(t, 0.2, *got.RiskIndicator)
	assert.Nil(t, got.ParticipationRate)
	assert.Equal(t, "50000", got.RequestedAmount.String())
	assert.Equal(t, "2000000", got.TotalTreasury.String())

	var resp dto.EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 73, resp.Leaderboard[0].OverallScore)
}

func TestEvaluateProposals_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed body", `{"proposals": [`, nil, http.StatusBadRequest},
		{"invalid input", `{"proposals": []}`, fmt.Errorf("%w: no proposals", governance.ErrInvalidInput), http.StatusBadRequest},
		{"storage failure", `{"proposals": [{"proposal_id": "P-1"}]}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(&stubEvaluationService{evaluateErr: tt.err})

			rec := serve(e, http.MethodPost, "/api/v1/evaluations", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.NotContains(t, body.Error, "db down")
		})
	}
}

func TestGetLeaderboard(t *testing.T) {
	svc := &stubEvaluationService{leaderboard: &dto.LeaderboardResponse{
		Limit:   5,
		Entries: []dto.LeaderboardEntry{{Rank: 1, ProposalID: "P-1", OverallScore: 88}},
	}}
	e := newTestServer(svc)

	rec := serve(e, http.MethodGet, "/api/v1/leaderboard?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.leaderLimit)

	var resp dto.LeaderboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "P-1", resp.Entries[0].ProposalID)

	rec = serve(e, http.MethodGet, "/api/v1/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.leaderLimit)

	for _, bad := range []string{"0", "-2", "ten"} {
		rec = serve(e, http.MethodGet, "/api/v1/leaderboard?limit="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestGetAlerts(t *testing.T) {
	svc := &stubEvaluationService{}
	e := newTestServer(svc)

	rec := serve(e, http.MethodGet, "/api/v1/alerts?severity=high&proposal_id=P-1&limit=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.AlertParam{Severity: governance.SeverityHigh, ProposalID: "P-1", Limit: 7}, svc.alertParam)

	var alerts []governance.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, governance.AlertHighRisk, alerts[0].Type)

	rec = serve(e, http.MethodGet, "/api/v1/alerts?severity=urgent", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProposalEvaluations(t *testing.T) {
	svc := &stubEvaluationService{}
	e := newTestServer(svc)

	rec := serve(e, http.MethodGet, "/api/v1/proposals/ARB-42/evaluations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ARB-42", svc.historyID)

	var history []dto.EvaluationHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, 71, history[0].OverallScore)

	svc.historyErr = errors.New("timeout")
	rec = serve(e, http.MethodGet, "/api/v1/proposals/ARB-42/evaluations", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
