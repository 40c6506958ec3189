package teamflow

import "strings"

// Verdict markers quality-gate hats must emit verbatim.
const (
	MarkerApproved         = "#APPROVED"
	MarkerRevisionRequired = "#REVISION_REQUIRED"
	MarkerRejected         = "#REJECTED"
)

// Verdict is the decision a quality gate expressed in its output.
type Verdict int

const (
	VerdictUnclear Verdict = iota
	VerdictApproved
	VerdictRevisionRequired
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictApproved:
		return "approved"
	case VerdictRevisionRequired:
		return "revision_required"
	case VerdictRejected:
		return "rejected"
	default:
		return "unclear"
	}
}

// ParseVerdict classifies gate output. A revision request wins over every
// other marker, and a rejection wins over an approval.
func ParseVerdict(text string) Verdict {
	switch {
	case strings.Contains(text, MarkerRevisionRequired):
		return VerdictRevisionRequired
	case strings.Contains(text, MarkerRejected):
		return VerdictRejected
	case strings.Contains(text, MarkerApproved):
		return VerdictApproved
	default:
		return VerdictUnclear
	}
}

// Decision is the user's answer at an approval point.
type Decision int

const (
	DecisionInvalid Decision = iota
	DecisionApprove
	DecisionRetry
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionRetry:
		return "retry"
	default:
		return "invalid"
	}
}

// ParseDecision reads "approve" or "retry", ignoring case and surrounding space.
func ParseDecision(input string) Decision {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "approve":
		return DecisionApprove
	case "retry":
		return DecisionRetry
	default:
		return DecisionInvalid
	}
}
