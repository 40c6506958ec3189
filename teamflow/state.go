package teamflow

// State is where a session's team flow currently stands.
type State string

const (
	StateIdle                  State = "idle"
	StateRunning               State = "running"
	StateAwaitingRetryDecision State = "awaiting_retry_decision"
	StateAwaitingApproval      State = "awaiting_approval"
	StateCompleted             State = "completed"
	StateAbandoned             State = "abandoned"
)

// Terminal reports whether no further transitions happen without a new Start.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}
