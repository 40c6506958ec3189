package teamflow

import (
	"fmt"
	"strings"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/mission"
	"github.com/chin3/hat-manager/types"
)

// FeedbackHeading labels critic feedback appended to a retried input.
const FeedbackHeading = "## Critic Feedback"

const gateInstructions = `You are acting as a quality gate for the team.
Score the work from 1 to 10 on Goal Coverage, Language Clarity and Creativity, then explain briefly.
End your reply with exactly one verdict marker:
` + MarkerApproved + ` if the work meets the goal,
` + MarkerRevisionRequired + ` if it needs another pass,
` + MarkerRejected + ` if it cannot be salvaged.`

// collaborator is a resolved relationship for prompt rendering.
type collaborator struct {
	id    string
	found *hat.Hat
}

func buildSystemPrompt(h *hat.Hat, collaborators []collaborator, memories []memory.Match) string {
	var b strings.Builder

	tools := "none"
	if len(h.Tools) > 0 {
		tools = strings.Join(h.Tools, ", ")
	}
	fmt.Fprintf(&b, "You are a %s agent named '%s'.\n", h.Role, h.Name)
	fmt.Fprintf(&b, "Your tools: %s.\n", tools)
	fmt.Fprintf(&b, "Instructions: %s", h.Instructions)

	if len(collaborators) > 0 {
		b.WriteString("\n\nYou have collaborators available:\n")
		for _, c := range collaborators {
			if c.found == nil {
				fmt.Fprintf(&b, "- @%s: (Details not found)\n", c.id)
				continue
			}
			desc := c.found.Description
			if desc == "" {
				desc = c.found.Name
			}
			ctools := "none"
			if len(c.found.Tools) > 0 {
				ctools = strings.Join(c.found.Tools, ", ")
			}
			fmt.Fprintf(&b, "- @%s: %q (Tools: %s)\n", c.id, desc, ctools)
		}
		b.WriteString("Mention them using @ if you need assistance!")
	}

	if len(memories) > 0 {
		b.WriteString("\n\nRelevant Memories:\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- %s (%s): %s\n", m.Role, m.Timestamp.Format("2006-01-02 15:04"), m.Text)
		}
	}

	if h.QualityGate {
		b.WriteString("\n\n")
		b.WriteString(gateInstructions)
	}
	return strings.TrimRight(b.String(), "\n")
}

// withFeedback appends the critic's full output to the original input.
func withFeedback(input, critique string) string {
	return input + "\n\n" + FeedbackHeading + "\n" + critique
}

func renderLog(steps []types.FlowStep) string {
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. [%s] (%s)\nInput: %s\nOutput: %s\n\n", i+1, s.HatName, s.Kind, s.Input, s.Output)
	}
	return strings.TrimSpace(b.String())
}

func debriefPrompt(goal string, outcome mission.Outcome, steps []types.FlowStep) string {
	return fmt.Sprintf("Mission goal: %s\nOutcome: %s\n\nMission log:\n%s\n\nWrite a short debrief of the mission: what the team attempted, what worked, what did not, and the final result.",
		goal, outcome.Label(), renderLog(steps))
}

func reflectionPrompt(h *hat.Hat, goal string, outcome mission.Outcome) string {
	return fmt.Sprintf("You are %s. The mission has completed. Write a short (1-2 sentences) personal reflection on your role in the mission and how it went.\n\nMission goal: %s\nOutcome: %s",
		h.Name, goal, outcome.Label())
}

func proposalPrompt(goal string) string {
	return fmt.Sprintf(`Design a small team of AI agents (2 to 5) to accomplish this goal:

%s

Reply with a JSON array only. Each element is an object with these fields:
"name", "description", "role" (planner, researcher, summarizer, critic, tool or agent),
"instructions", "tools" (array of strings), "flow_order" (integer, 1-based),
"qa_loop" (true only for the reviewing critic), "retry_limit" (0-3), "memory_tags" (array of strings).
Put exactly one critic with "qa_loop": true last in the flow.`, goal)
}
