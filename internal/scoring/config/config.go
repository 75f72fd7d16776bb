package config

import (
	"fmt"
	"time"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/pkg/config"

	"github.com/go-playground/validator/v10"
)

// Evaluation holds scoring-service specific configuration.
type Evaluation struct {
	Workers                 int           `mapstructure:"workers" validate:"gte=0"`
	MaxBatchSize            int           `mapstructure:"max_batch_size" validate:"gt=0"`
	DefaultLeaderboardLimit int           `mapstructure:"default_leaderboard_limit" validate:"gt=0"`
	HistoryLimit            int           `mapstructure:"history_limit" validate:"gt=0"`
	LeaderboardCacheTTL     time.Duration `mapstructure:"leaderboard_cache_ttl" validate:"gte=0"`

	// RescoreSchedule is a cron spec with seconds; empty disables periodic re-scoring.
	RescoreSchedule string `mapstructure:"rescore_schedule"`

	RedisStreamBlockTimeout time.Duration `mapstructure:"redis_stream_block_timeout" validate:"gt=0"`
	RedisStreamBatchSize    int64         `mapstructure:"redis_stream_batch_size" validate:"gt=0"`
	MaxMessagesPerSecond    float64       `mapstructure:"max_messages_per_second" validate:"gt=0"`

	// Pending messages idle longer than RedisStreamMaxIdle are reclaimed every
	// RedisStreamRetryInterval and dropped after RedisStreamMaxRetry deliveries.
	RedisStreamRetryInterval time.Duration `mapstructure:"redis_stream_retry_interval" validate:"gt=0"`
	RedisStreamMaxIdle       time.Duration `mapstructure:"redis_stream_max_idle" validate:"gt=0"`
	RedisStreamMaxRetry      int64         `mapstructure:"redis_stream_max_retry" validate:"gt=0"`
}

// Config holds the full configuration for the scoring service.
type Config struct {
	App        config.App                 `mapstructure:"app"`
	Logger     config.Logger              `mapstructure:"logger"`
	Database   config.Database            `mapstructure:"database"`
	Redis      config.Redis               `mapstructure:"redis"`
	API        config.API                 `mapstructure:"api"`
	Scoring    governance.ScoringConfig   `mapstructure:"scoring"`
	Alerts     governance.AlertThresholds `mapstructure:"alerts"`
	Evaluation Evaluation                 `mapstructure:"evaluation"`
}

// Defaults mirrors the production weights so a partial file only overrides what it names.
func Defaults() map[string]interface{} {
	scoring := governance.DefaultScoringConfig()
	alerts := governance.DefaultAlertThresholds()

	return map[string]interface{}{
		"app.name":        "governance-scoring-service",
		"app.env":         "development",
		"logger.level":    "info",
		"logger.encoding": "json",
		"api.port":        8080,

		"database.port":        5432,
		"database.ssl_mode":    "disable",
		"redis.port":           6379,
		"redis.pool_size":      10,
		"redis.stream_max_len": 10000,

		"scoring.weights.prediction_confidence": scoring.Weights.PredictionConfidence,
		"scoring.weights.sentiment":             scoring.Weights.Sentiment,
		"scoring.weights.participation":         scoring.Weights.Participation,
		"scoring.weights.risk_assessment":       scoring.Weights.RiskAssessment,
		"scoring.weights.treasury_impact":       scoring.Weights.TreasuryImpact,
		"scoring.weights.execution_quality":     scoring.Weights.ExecutionQuality,
		"scoring.ratings.excellent":             scoring.Ratings.Excellent,
		"scoring.ratings.good":                  scoring.Ratings.Good,
		"scoring.ratings.moderate":              scoring.Ratings.Moderate,
		"scoring.ratings.poor":                  scoring.Ratings.Poor,
		"scoring.treasury_ratio_penalty":        scoring.TreasuryRatioPenalty,
		"scoring.high_confidence_label":         scoring.HighConfidenceLabel,
		"scoring.medium_confidence_label":       scoring.MediumConfidenceLabel,

		"alerts.voting_concentration":       alerts.VotingConcentration,
		"alerts.large_treasury_request":     alerts.LargeTreasuryRequest,
		"alerts.negative_sentiment":         alerts.NegativeSentiment,
		"alerts.high_risk":                  alerts.HighRisk,
		"alerts.deadline_window":            alerts.DeadlineWindow,
		"alerts.high_confidence_prediction": alerts.HighConfidencePrediction,

		"evaluation.workers":                     0,
		"evaluation.max_batch_size":              500,
		"evaluation.default_leaderboard_limit":   10,
		"evaluation.history_limit":               50,
		"evaluation.leaderboard_cache_ttl":       30 * time.Second,
		"evaluation.rescore_schedule":            "0 */15 * * * *",
		"evaluation.redis_stream_block_timeout":  5 * time.Second,
		"evaluation.redis_stream_batch_size":     10,
		"evaluation.max_messages_per_second":     50.0,
		"evaluation.redis_stream_retry_interval": 30 * time.Second,
		"evaluation.redis_stream_max_idle":       time.Minute,
		"evaluation.redis_stream_max_retry":      5,
	}
}

// Load loads the scoring configuration from the given path and validates it.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg, Defaults()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules of the scoring blocks.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c.Logger); err != nil {
		return fmt.Errorf("invalid logger config: %w", err)
	}
	if err := v.Struct(c.Evaluation); err != nil {
		return fmt.Errorf("invalid evaluation config: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	return c.Alerts.Validate()
}
