package mission

import (
	"time"

	"github.com/chin3/hat-manager/types"
)

// Outcome classifies a finished team flow.
type Outcome string

const (
	OutcomeSuccess        Outcome = "SUCCESS"
	OutcomePartialSuccess Outcome = "PARTIAL_SUCCESS"
	OutcomeFailed         Outcome = "FAILED"
)

// Classify maps the two run flags to an outcome.
func Classify(missionSuccess, revisionRequired bool) Outcome {
	switch {
	case missionSuccess && !revisionRequired:
		return OutcomeSuccess
	case missionSuccess && revisionRequired:
		return OutcomePartialSuccess
	default:
		return OutcomeFailed
	}
}

// Label is the human-readable outcome.
func (o Outcome) Label() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomePartialSuccess:
		return "Partial Success"
	default:
		return "Failed"
	}
}

// Contribution counts how many steps a hat produced.
type Contribution struct {
	HatName string `json:"hat"`
	Steps   int    `json:"steps"`
}

// Reflection is a hat's short retrospective on the mission.
type Reflection struct {
	HatID   string `json:"hat_id"`
	HatName string `json:"hat"`
	Text    string `json:"text"`
}

// Record is the archived summary of one completed team flow.
// A record may be partial; Errors lists what could not be produced.
type Record struct {
	ID               string           `json:"id"`
	Timestamp        time.Time        `json:"timestamp"`
	TeamID           string           `json:"team_id"`
	Goal             string           `json:"goal"`
	Outcome          Outcome          `json:"outcome"`
	OutcomeLabel     string           `json:"outcome_label"`
	MissionSuccess   bool             `json:"mission_success"`
	RevisionRequired bool             `json:"revision_required"`
	Steps            []types.FlowStep `json:"log"`
	Debrief          string           `json:"debrief"`
	Contributions    []Contribution   `json:"contributions"`
	MVP              string           `json:"mvp,omitempty"`
	RunnerUp         string           `json:"runner_up,omitempty"`
	Reflections      []Reflection     `json:"reflections"`
	Errors           []string         `json:"errors,omitempty"`
}

// IDFor returns the timestamp-derived mission id.
func IDFor(ts time.Time) string {
	return "mission_" + ts.Format("20060102150405")
}
