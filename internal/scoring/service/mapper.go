package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"dao-governance-scorer/internal/entity"
	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/dto"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

func toEvaluationEntity(score governance.CompositeScore) (*entity.ProposalEvaluation, error) {
	components, err := json.Marshal(score.Components)
	if err != nil {
		return nil, fmt.Errorf("marshal components: %w", err)
	}
	weights, err := json.Marshal(score.EffectiveWeights)
	if err != nil {
		return nil, fmt.Errorf("marshal effective weights: %w", err)
	}
	contributions, err := json.Marshal(score.Contributions)
	if err != nil {
		return nil, fmt.Errorf("marshal contributions: %w", err)
	}
	suspects := score.Suspects
	if suspects == nil {
		suspects = []governance.SuspectValue{}
	}
	suspectJSON, err := json.Marshal(suspects)
	if err != nil {
		return nil, fmt.Errorf("marshal suspects: %w", err)
	}

	unavailable := pq.StringArray{}
	for _, c := range score.Components.Unavailable() {
		unavailable = append(unavailable, string(c))
	}

	return &entity.ProposalEvaluation{
		EvaluationID:          score.EvaluationID,
		ProposalID:            score.ProposalID,
		Title:                 score.Title,
		DAO:                   score.DAO,
		OverallScore:          score.OverallScore,
		Rating:                string(score.Rating),
		Action:                string(score.Recommendation.Action),
		Confidence:            string(score.Recommendation.Confidence),
		Message:               score.Recommendation.Message,
		Components:            datatypes.JSON(components),
		EffectiveWeights:      datatypes.JSON(weights),
		Contributions:         datatypes.JSON(contributions),
		Suspects:              datatypes.JSON(suspectJSON),
		SuspectFields:         pq.StringArray(suspectFields(score.Suspects)),
		UnavailableComponents: unavailable,
		ScoredAt:              score.ScoredAt,
	}, nil
}

func toCompositeScore(e entity.ProposalEvaluation) (governance.CompositeScore, error) {
	score := governance.CompositeScore{
		EvaluationID: e.EvaluationID,
		ProposalID:   e.ProposalID,
		Title:        e.Title,
		DAO:          e.DAO,
		OverallScore: e.OverallScore,
		Rating:       governance.Rating(e.Rating),
		Recommendation: governance.Recommendation{
			Action:     governance.Action(e.Action),
			Confidence: governance.ConfidenceLabel(e.Confidence),
			Message:    e.Message,
		},
		ScoredAt: e.ScoredAt,
	}
	if err := unmarshalColumn(e.Components, &score.Components); err != nil {
		return score, fmt.Errorf("evaluation %s components: %w", e.EvaluationID, err)
	}
	if err := unmarshalColumn(e.EffectiveWeights, &score.EffectiveWeights); err != nil {
		return score, fmt.Errorf("evaluation %s effective weights: %w", e.EvaluationID, err)
	}
	if err := unmarshalColumn(e.Contributions, &score.Contributions); err != nil {
		return score, fmt.Errorf("evaluation %s contributions: %w", e.EvaluationID, err)
	}
	if err := unmarshalColumn(e.Suspects, &score.Suspects); err != nil {
		return score, fmt.Errorf("evaluation %s suspects: %w", e.EvaluationID, err)
	}
	return score, nil
}

func toHistoryResponse(e entity.ProposalEvaluation) (*dto.EvaluationHistoryResponse, error) {
	score, err := toCompositeScore(e)
	if err != nil {
		return nil, err
	}
	return &dto.EvaluationHistoryResponse{
		EvaluationID:          score.EvaluationID,
		ProposalID:            score.ProposalID,
		OverallScore:          score.OverallScore,
		Rating:                score.Rating,
		Recommendation:        score.Recommendation,
		Components:            score.Components,
		EffectiveWeights:      score.EffectiveWeights,
		UnavailableComponents: e.UnavailableComponents,
		SuspectFields:         e.SuspectFields,
		ScoredAt:              score.ScoredAt,
	}, nil
}

func toLeaderboardEntry(rank int, score governance.CompositeScore) dto.LeaderboardEntry {
	return dto.LeaderboardEntry{
		Rank:         rank,
		EvaluationID: score.EvaluationID,
		ProposalID:   score.ProposalID,
		Title:        score.Title,
		DAO:          score.DAO,
		OverallScore: score.OverallScore,
		Rating:       score.Rating,
		Action:       score.Recommendation.Action,
		Confidence:   score.Recommendation.Confidence,
		ScoredAt:     score.ScoredAt,
	}
}

func toAlertEntities(evaluationID *string, alerts []governance.Alert) []entity.ProposalAlert {
	out := make([]entity.ProposalAlert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, entity.ProposalAlert{
			AlertID:        a.ID,
			EvaluationID:   evaluationID,
			ProposalID:     a.ProposalID,
			Severity:       string(a.Severity),
			Type:           string(a.Type),
			Message:        a.Message,
			Recommendation: a.Recommendation,
			TriggeredAt:    a.TriggeredAt,
		})
	}
	return out
}

func toAlert(e entity.ProposalAlert) governance.Alert {
	return governance.Alert{
		ID:             e.AlertID,
		Severity:       governance.Severity(e.Severity),
		Type:           governance.AlertType(e.Type),
		Message:        e.Message,
		ProposalID:     e.ProposalID,
		TriggeredAt:    e.TriggeredAt,
		Recommendation: e.Recommendation,
	}
}

// toSnapshotEntity keys the snapshot by the trimmed id, the same id evaluations are stored under.
func toSnapshotEntity(raw governance.ProposalSignals) (*entity.ProposalSignalSnapshot, error) {
	raw.ProposalID = strings.TrimSpace(raw.ProposalID)
	signals, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal signals: %w", err)
	}
	return &entity.ProposalSignalSnapshot{
		ProposalID: raw.ProposalID,
		DAO:        raw.DAO,
		Status:     string(raw.Status),
		Deadline:   raw.Deadline,
		Signals:    datatypes.JSON(signals),
	}, nil
}

func toProposalSignals(snapshot entity.ProposalSignalSnapshot) (governance.ProposalSignals, error) {
	var raw governance.ProposalSignals
	if err := json.Unmarshal(snapshot.Signals, &raw); err != nil {
		return raw, fmt.Errorf("snapshot %s: %w", snapshot.ProposalID, err)
	}
	return raw, nil
}

func suspectFields(suspects []governance.SuspectValue) []string {
	return governance.NormalizedSignals{Suspects: suspects}.SuspectFields()
}

func unmarshalColumn(data datatypes.JSON, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
