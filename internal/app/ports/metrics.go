package ports

import "time"

type TurnMetrics interface {
	RecordTurn(latency time.Duration)
	RecordAIRetry()
	RecordAIFailure()
	RecordCombatStarted()
	RecordDeath()
}
