package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/chin3/hat-manager/types"
)

// =============================================================================
// 💬 交互式会话
// =============================================================================

const replHelp = `Commands:
  run team <team_id> <goal>   run a team flow
  approve | retry             answer a flow awaiting approval
  view team <team_id>         list a team's hats in flow order
  wear <hat_id>               put on a hat for direct chat
  take off                    remove the current hat
  current hat                 show the hat you are wearing
  view memories               show recent memories of the current hat
  clear memories              forget everything the current hat remembers
  help                        show this help
  quit                        leave
Anything else is sent to the current hat.`

// replMemoryLimit 是 view memories 显示的条数
const replMemoryLimit = 10

// REPL 是单会话的命令行界面
type REPL struct {
	app  *App
	sess *teamflow.Session
	out  io.Writer
}

// NewREPL 为 sessionID 创建 REPL
func NewREPL(app *App, sessionID string, out io.Writer) *REPL {
	return &REPL{app: app, sess: app.sessions.Get(sessionID), out: out}
}

// Run 逐行读取命令，直到 quit、输入结束或 ctx 取消
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	fmt.Fprintln(r.out, "HatFlow interactive session. Type 'help' for commands.")
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.Handle(ctx, scanner.Text()) {
			return nil
		}
	}
}

// Handle 执行一行命令，返回 true 表示退出
func (r *REPL) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	lower := strings.ToLower(line)

	switch {
	case lower == "quit" || lower == "exit":
		fmt.Fprintln(r.out, "Bye.")
		return true
	case lower == "help":
		fmt.Fprintln(r.out, replHelp)
	case strings.HasPrefix(lower, "run team "):
		r.runTeam(ctx, strings.TrimSpace(line[len("run team "):]))
	case r.sess.State() == teamflow.StateAwaitingApproval || lower == "approve" || lower == "retry":
		// 挂起期间任何输入都视为审批答复，无效答复会得到重新提示
		out, err := r.app.orchestrator.Resume(ctx, r.sess, line)
		r.printOutcome(out, err)
	case strings.HasPrefix(lower, "view team "):
		r.viewTeam(ctx, strings.TrimSpace(line[len("view team "):]))
	case strings.HasPrefix(lower, "wear "):
		r.wear(ctx, strings.TrimSpace(line[len("wear "):]))
	case lower == "take off":
		r.sess.Wear(nil)
		fmt.Fprintln(r.out, "You are not wearing a hat.")
	case lower == "current hat":
		r.currentHat()
	case lower == "view memories":
		r.viewMemories(ctx)
	case lower == "clear memories":
		r.clearMemories(ctx)
	default:
		r.chat(ctx, line)
	}
	return false
}

func (r *REPL) runTeam(ctx context.Context, args string) {
	teamID, goal, _ := strings.Cut(args, " ")
	if teamID == "" || strings.TrimSpace(goal) == "" {
		fmt.Fprintln(r.out, "Usage: run team <team_id> <goal>")
		return
	}
	out, err := r.app.orchestrator.Start(ctx, r.sess, teamID, strings.TrimSpace(goal))
	r.printOutcome(out, err)
}

func (r *REPL) viewTeam(ctx context.Context, teamID string) {
	members, err := r.app.hats.ListByTeam(ctx, teamID)
	if err != nil {
		r.printError(err)
		return
	}
	if len(members) == 0 {
		fmt.Fprintf(r.out, "Team %s has no active hats.\n", teamID)
		return
	}
	fmt.Fprintf(r.out, "Team %s:\n", teamID)
	for _, h := range members {
		order := "-"
		if h.FlowOrder != nil {
			order = fmt.Sprint(*h.FlowOrder)
		}
		gate := ""
		if h.QualityGate {
			gate = " [quality gate]"
		}
		fmt.Fprintf(r.out, "  %s. %s (%s, %s)%s\n", order, h.Name, h.ID, h.Role, gate)
	}
}

func (r *REPL) wear(ctx context.Context, hatID string) {
	if r.sess.State() == teamflow.StateRunning {
		fmt.Fprintln(r.out, "A team flow is running; change hats when it finishes.")
		return
	}
	h, err := r.app.hats.Get(ctx, hatID)
	if errors.Is(err, hat.ErrNotFound) {
		fmt.Fprintf(r.out, "No hat with id %s.\n", hatID)
		return
	}
	if err != nil {
		r.printError(err)
		return
	}
	r.sess.Wear(h)
	fmt.Fprintf(r.out, "You are now wearing %s (%s).\n", h.Name, h.ID)
}

func (r *REPL) currentHat() {
	h := r.sess.ActiveHat()
	if h == nil {
		fmt.Fprintln(r.out, "You are not wearing a hat.")
		return
	}
	fmt.Fprintf(r.out, "%s (%s), role %s, model %s\n", h.Name, h.ID, h.Role, h.Model)
}

func (r *REPL) viewMemories(ctx context.Context) {
	h := r.requireHat()
	if h == nil {
		return
	}
	matches, err := r.app.memory.Query(ctx, h.ID, "", replMemoryLimit)
	if err != nil {
		r.printError(err)
		return
	}
	if len(matches) == 0 {
		fmt.Fprintf(r.out, "%s remembers nothing yet.\n", h.Name)
		return
	}
	for _, m := range matches {
		fmt.Fprintf(r.out, "  [%s %s] %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Role, m.Text)
	}
}

func (r *REPL) clearMemories(ctx context.Context) {
	h := r.requireHat()
	if h == nil {
		return
	}
	if err := r.app.memory.Clear(ctx, h.ID); err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintf(r.out, "Cleared memories of %s.\n", h.Name)
}

// chat 以当前 Hat 直接对话，并把一问一答写入记忆
func (r *REPL) chat(ctx context.Context, text string) {
	h := r.requireHat()
	if h == nil {
		return
	}
	reply, err := r.app.generator.Generate(ctx, text, h)
	if err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintf(r.out, "%s: %s\n", h.Name, reply)

	tags := append([]string{"chat"}, h.MemoryTags...)
	if err := r.app.memory.Append(ctx, h.ID, text, memory.RoleUser, tags); err != nil {
		r.printError(err)
		return
	}
	if err := r.app.memory.Append(ctx, h.ID, reply, memory.RoleAssistant, tags); err != nil {
		r.printError(err)
	}
}

func (r *REPL) requireHat() *hat.Hat {
	h := r.sess.ActiveHat()
	if h == nil {
		fmt.Fprintln(r.out, "Wear a hat first: wear <hat_id>. Type 'help' for commands.")
	}
	return h
}

func (r *REPL) printOutcome(out *teamflow.Outcome, err error) {
	if err != nil {
		r.printError(err)
		return
	}
	if out.Reprompt {
		fmt.Fprintln(r.out, teamflow.RepromptMessage)
		return
	}
	for _, s := range out.Steps {
		fmt.Fprintf(r.out, "[%s] %s\n", s.HatName, s.Output)
	}

	switch out.State {
	case teamflow.StateAwaitingApproval:
		fmt.Fprintf(r.out, "Verdict: %s\n", out.Verdict)
		fmt.Fprintln(r.out, "Reply 'approve' to finish the mission or 'retry' to run the team again.")
	case teamflow.StateCompleted:
		if out.Mission != nil {
			fmt.Fprintf(r.out, "Mission %s: %s\n", out.Mission.ID, out.Mission.OutcomeLabel)
			if out.Mission.Debrief != "" {
				fmt.Fprintf(r.out, "Debrief: %s\n", out.Mission.Debrief)
			}
			if out.Mission.MVP != "" {
				fmt.Fprintf(r.out, "MVP: %s", out.Mission.MVP)
				if out.Mission.RunnerUp != "" {
					fmt.Fprintf(r.out, ", runner-up: %s", out.Mission.RunnerUp)
				}
				fmt.Fprintln(r.out)
			}
		}
		if out.MissionLocation != "" {
			fmt.Fprintf(r.out, "Archived to %s\n", out.MissionLocation)
		}
		if out.MissionErr != nil {
			fmt.Fprintf(r.out, "Warning: %v\n", out.MissionErr)
		}
	default:
		fmt.Fprintf(r.out, "Flow %s.\n", out.State)
	}
}

func (r *REPL) printError(err error) {
	if e, ok := types.AsError(err); ok {
		fmt.Fprintf(r.out, "Error [%s]: %s\n", e.Code, e.Message)
		return
	}
	fmt.Fprintf(r.out, "Error: %v\n", err)
}
