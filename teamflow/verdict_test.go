package teamflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Verdict
	}{
		{"approved", "Great work. #APPROVED", VerdictApproved},
		{"revision", "Needs sources. #REVISION_REQUIRED", VerdictRevisionRequired},
		{"rejected", "Off topic. #REJECTED", VerdictRejected},
		{"no marker", "Looks fine to me", VerdictUnclear},
		{"empty", "", VerdictUnclear},
		{"revision beats approval", "#APPROVED but actually #REVISION_REQUIRED", VerdictRevisionRequired},
		{"rejection beats approval", "#APPROVED ... #REJECTED", VerdictRejected},
		{"case sensitive", "#approved", VerdictUnclear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVerdict(tt.text))
		})
	}
}

func TestParseVerdict_Properties(t *testing.T) {
	markers := []string{MarkerApproved, MarkerRevisionRequired, MarkerRejected, ""}
	rapid.Check(t, func(rt *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(markers), 0, 4).Draw(rt, "markers")
		filler := rapid.StringMatching(`[a-z ]{0,20}`).Draw(rt, "filler")
		text := filler + strings.Join(parts, filler)

		got := ParseVerdict(text)
		if got != ParseVerdict(text) {
			rt.Fatalf("verdict is not deterministic")
		}
		hasRevision := strings.Contains(text, MarkerRevisionRequired)
		if hasRevision && got != VerdictRevisionRequired {
			rt.Fatalf("revision marker present but got %s", got)
		}
		if !hasRevision && !strings.Contains(text, MarkerRejected) && !strings.Contains(text, MarkerApproved) && got != VerdictUnclear {
			rt.Fatalf("no marker but got %s", got)
		}
	})
}

func TestParseDecision(t *testing.T) {
	assert.Equal(t, DecisionApprove, ParseDecision("approve"))
	assert.Equal(t, DecisionApprove, ParseDecision("  APPROVE \n"))
	assert.Equal(t, DecisionRetry, ParseDecision("Retry"))
	assert.Equal(t, DecisionInvalid, ParseDecision("maybe"))
	assert.Equal(t, DecisionInvalid, ParseDecision(""))
	assert.Equal(t, "retry", DecisionRetry.String())
	assert.Equal(t, "unclear", VerdictUnclear.String())
}
