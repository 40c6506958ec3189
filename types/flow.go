package types

import "time"

// StepKind tells why a flow step was produced.
type StepKind string

const (
	// StepInitial is the first invocation of a persona in a run.
	StepInitial StepKind = "initial"
	// StepRetry is a regeneration driven by critic feedback.
	StepRetry StepKind = "retry"
	// StepReview is a quality gate re-evaluating a retried output.
	StepReview StepKind = "review"
)

// FlowStep is one persona invocation inside a team flow.
// Steps are append-only; nothing mutates a step after it is logged.
type FlowStep struct {
	HatID     string    `json:"hat_id"`
	HatName   string    `json:"hat"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Kind      StepKind  `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CloneSteps returns a copy of the step log.
func CloneSteps(steps []FlowStep) []FlowStep {
	if steps == nil {
		return nil
	}
	out := make([]FlowStep, len(steps))
	copy(out, steps)
	return out
}
