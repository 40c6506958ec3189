package teamflow

import (
	"context"
	"fmt"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/types"
)

// ArchitectHatID identifies the synthetic hat that drafts teams.
const ArchitectHatID = "team_architect"

// ProposeTeam asks the model to design a team for goal. The returned hats
// share a fresh auto_team_<timestamp> id and contiguous flow orders; they are
// not stored.
func ProposeTeam(ctx context.Context, responder Responder, goal, model string, now time.Time) (string, []*hat.Hat, error) {
	if goal == "" {
		return "", nil, types.NewInvalidRequestError("goal is required")
	}

	architect := hat.New("Team Architect", hat.RolePlanner,
		"You design small, focused teams of AI agents. You answer with JSON only.")
	architect.ID = ArchitectHatID
	if model != "" {
		architect.Model = model
	}

	reply, err := responder.Generate(ctx, proposalPrompt(goal), architect)
	if err != nil {
		return "", nil, err
	}

	hats, err := hat.ParseHats(reply)
	if err != nil {
		return "", nil, types.NewError(types.ErrUpstreamError, "team proposal was not valid JSON").WithCause(err)
	}
	if len(hats) == 0 {
		return "", nil, types.NewError(types.ErrUpstreamError, "team proposal was empty")
	}

	teamID := fmt.Sprintf("auto_team_%s", now.Format("20060102150405"))
	for i, h := range hats {
		h.TeamID = hat.StringPtr(teamID)
		if h.FlowOrder == nil {
			h.FlowOrder = hat.IntPtr(i + 1)
		}
	}
	return teamID, hats, nil
}
