package common

const (
	RedisStreamProposalSignals = "governance.signals"
	RedisStreamProposalAlerts  = "governance.alerts"

	RedisStreamGroup    = "scoring-group"
	RedisStreamConsumer = "scoring-consumer"

	RedisStreamPayloadField = "payload"
)
