package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/config"
	"dao-governance-scorer/internal/scoring/dto"
	"dao-governance-scorer/internal/scoring/service"
	"dao-governance-scorer/pkg/common"
	"dao-governance-scorer/pkg/logger"
	"dao-governance-scorer/pkg/metrics"
	"dao-governance-scorer/pkg/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// StreamClient is the subset of the Redis client the consumer uses.
type StreamClient interface {
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XDel(ctx context.Context, stream string, ids ...string) *redis.IntCmd
}

// RedisConsumer reads proposal signals from a Redis stream, evaluates them and
// publishes the resulting alerts for notification transports.
type RedisConsumer struct {
	cfg               *config.Config
	client            StreamClient
	evaluationService service.EvaluationService
	limiter           *rate.Limiter
	metrics           *metrics.Metrics
	logger            *logger.Logger
	stopChan          chan struct{}
	wg                sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	client StreamClient,
	evaluationService service.EvaluationService,
	m *metrics.Metrics,
	log *logger.Logger,
) *RedisConsumer {
	perSecond := cfg.Evaluation.MaxMessagesPerSecond
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RedisConsumer{
		cfg:               cfg,
		client:            client,
		evaluationService: evaluationService,
		limiter:           rate.NewLimiter(rate.Limit(perSecond), burst),
		metrics:           m,
		logger:            log,
		stopChan:          make(chan struct{}),
	}
}

// Start begins the consumer's processing loops: one for new messages and one
// that reclaims messages left pending by a failed attempt.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started", logger.StringField("stream", common.RedisStreamProposalSignals))

	// The read blocks for up to the block timeout; leave room for evaluating what it returns.
	timeout := 2*c.cfg.Evaluation.RedisStreamBlockTimeout + 30*time.Second

	c.RegisterStreamHandler(ctx, c.Poll, common.RedisStreamProposalSignals, timeout)
	c.RegisterTickerHandler(ctx, c.ProcessRetries, c.cfg.Evaluation.RedisStreamRetryInterval, c.cfg.Evaluation.RedisStreamMaxIdle, common.RedisStreamProposalSignals+"-retry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.StringField("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.StringField("name", name),
		logger.DurationField("interval", interval),
		logger.DurationField("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.StringField("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.StringField("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}

// Poll reads one batch of new messages and handles each of them.
func (c *RedisConsumer) Poll(ctx context.Context) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamProposalSignals, ">"},
		Count:    c.cfg.Evaluation.RedisStreamBatchSize,
		Block:    c.cfg.Evaluation.RedisStreamBlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Error("Failed to read from signal stream", logger.ErrorField(err))
		time.Sleep(time.Second)
		return
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			c.handleMessage(ctx, message)
		}
	}
}

// handleMessage acks every message except those that failed for a transient
// reason; those stay pending for redelivery.
func (c *RedisConsumer) handleMessage(ctx context.Context, message redis.XMessage) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	payload, ok := message.Values[common.RedisStreamPayloadField].(string)
	if !ok {
		c.logger.Error("field 'payload' not found or not a string in stream message", logger.StringField("message_id", message.ID))
		c.ack(ctx, message.ID, "malformed")
		return
	}

	var signals governance.ProposalSignals
	if err := json.Unmarshal([]byte(payload), &signals); err != nil {
		c.logger.Error("Failed to decode proposal signals", logger.ErrorField(err), logger.StringField("message_id", message.ID))
		c.ack(ctx, message.ID, "malformed")
		return
	}

	resp, err := c.evaluationService.Evaluate(ctx, dto.EvaluateRequest{
		Proposals: []governance.ProposalSignals{signals},
		Limit:     1,
	})
	if err != nil {
		if errors.Is(err, governance.ErrInvalidInput) {
			c.logger.Warn("Rejected proposal signals", logger.ErrorField(err), logger.StringField("message_id", message.ID))
			c.ack(ctx, message.ID, "invalid")
			return
		}
		c.logger.Error("Failed to evaluate proposal signals", logger.ErrorField(err), logger.StringField("message_id", message.ID))
		c.metrics.StreamMessages.WithLabelValues("failed").Inc()
		return
	}

	if len(resp.Unsaved) > 0 {
		// Alerts are only published once the evaluation is stored, so a retry does not duplicate them.
		c.logger.Error("Evaluation not stored, leaving message pending",
			logger.StringField("message_id", message.ID),
			logger.StringField("proposal_id", signals.ProposalID))
		c.metrics.StreamMessages.WithLabelValues("failed").Inc()
		return
	}

	for _, eval := range resp.Evaluations {
		for _, alert := range governance.SortBySeverity(eval.Alerts) {
			c.publishAlert(ctx, alert)
		}
	}
	c.ack(ctx, message.ID, "processed")
}

// ProcessRetries claims messages that have been pending longer than the max
// idle duration and handles them again. Messages delivered max retry times are
// acked and deleted instead.
func (c *RedisConsumer) ProcessRetries(ctx context.Context) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamProposalSignals,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  c.cfg.Evaluation.RedisStreamMaxIdle,
		Start:    "0",
		Count:    c.cfg.Evaluation.RedisStreamBatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Error("Failed to claim pending signal messages", logger.ErrorField(err))
		return
	}
	if len(msgs) == 0 {
		c.logger.Debug("Retry no pending messages found", logger.StringField("stream", common.RedisStreamProposalSignals))
		return
	}

	c.logger.Info("Found pending messages", logger.StringField("stream", common.RedisStreamProposalSignals), logger.IntField("count", len(msgs)))

	for _, msg := range msgs {
		pendingInfo, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: common.RedisStreamProposalSignals,
			Group:  common.RedisStreamGroup,
			Start:  msg.ID,
			End:    msg.ID,
			Count:  1,
		}).Result()
		if err != nil {
			c.logger.Error("Failed to get pending info", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
			continue
		}
		if len(pendingInfo) == 0 {
			c.logger.Warn("pending msg not found, but exist on xautoclaim", logger.StringField("message_id", msg.ID))
			continue
		}

		if pendingInfo[0].RetryCount >= c.cfg.Evaluation.RedisStreamMaxRetry {
			c.logger.Error("pending msg retry count exceeded",
				logger.StringField("message_id", msg.ID),
				logger.IntField("retry_count", int(pendingInfo[0].RetryCount)),
				logger.IntField("max_retry", int(c.cfg.Evaluation.RedisStreamMaxRetry)))
			c.metrics.StreamMessages.WithLabelValues("dropped").Inc()
			if err := c.AckNDel(ctx, msg.ID); err != nil {
				c.logger.Error("Failed to acknowledge and delete signal message", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
			}
			continue
		}

		c.handleMessage(ctx, msg)
	}
}

// AckNDel acknowledges a message and removes it from the signal stream.
func (c *RedisConsumer) AckNDel(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, common.RedisStreamProposalSignals, common.RedisStreamGroup, messageID).Err(); err != nil {
		return err
	}
	return c.client.XDel(ctx, common.RedisStreamProposalSignals, messageID).Err()
}

func (c *RedisConsumer) publishAlert(ctx context.Context, alert governance.Alert) {
	body, err := json.Marshal(alert)
	if err != nil {
		c.logger.Error("Failed to encode alert", logger.ErrorField(err), logger.StringField("alert_id", alert.ID))
		return
	}
	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamProposalAlerts,
		Values: map[string]interface{}{common.RedisStreamPayloadField: string(body)},
		MaxLen: c.cfg.Redis.StreamMaxLen,
		Approx: true,
	}).Err()
	if err != nil {
		c.logger.Error("Failed to publish alert", logger.ErrorField(err), logger.StringField("alert_id", alert.ID))
	}
}

func (c *RedisConsumer) ack(ctx context.Context, messageID, result string) {
	c.metrics.StreamMessages.WithLabelValues(result).Inc()
	if err := c.client.XAck(ctx, common.RedisStreamProposalSignals, common.RedisStreamGroup, messageID).Err(); err != nil {
		c.logger.Error("Failed to acknowledge message", logger.ErrorField(err), logger.StringField("message_id", messageID))
	}
}
