package teamflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/internal/metrics"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/mission"
	"github.com/chin3/hat-manager/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// RepromptMessage is sent when a resume input is neither approve nor retry.
const RepromptMessage = "Please reply with 'approve' to finish the mission or 'retry' to run the team again."

// Options wires an Orchestrator. Hats and Responder are required.
type Options struct {
	Hats      hat.Store
	Memory    memory.Store
	Responder Responder
	Finalizer *Finalizer
	Snapshots SnapshotStore
	Notifier  Notifier
	Metrics   *metrics.Collector
	Logger    *zap.Logger
	Now       func() time.Time
}

// Orchestrator drives team flows. It holds no per-session state of its own;
// everything mutable lives on the Session or in the SnapshotStore.
type Orchestrator struct {
	hats      hat.Store
	memory    memory.Store
	responder Responder
	finalizer *Finalizer
	snapshots SnapshotStore
	notifier  Notifier
	metrics   *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// Outcome reports where a Start or Resume call left the session.
type Outcome struct {
	SessionID        string           `json:"session_id"`
	RunID            string           `json:"run_id,omitempty"`
	TeamID           string           `json:"team_id"`
	Goal             string           `json:"goal"`
	State            State            `json:"state"`
	Steps            []types.FlowStep `json:"log"`
	Pending          string           `json:"pending,omitempty"`
	Verdict          string           `json:"verdict,omitempty"`
	MissionSuccess   bool             `json:"mission_success"`
	RevisionRequired bool             `json:"revision_required"`
	Reprompt         bool             `json:"reprompt,omitempty"`
	FinalOutput      string           `json:"final_output,omitempty"`
	Mission          *mission.Record  `json:"mission,omitempty"`
	MissionLocation  string           `json:"mission_location,omitempty"`
	MissionErr       error            `json:"-"`
}

// NewOrchestrator validates opts and fills optional collaborators.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Hats == nil {
		return nil, errors.New("teamflow: hat store is required")
	}
	if opts.Responder == nil {
		return nil, errors.New("teamflow: responder is required")
	}
	if opts.Snapshots == nil {
		opts.Snapshots = NewMemorySnapshotStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		hats:      opts.Hats,
		memory:    opts.Memory,
		responder: opts.Responder,
		finalizer: opts.Finalizer,
		snapshots: opts.Snapshots,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With(zap.String("component", "orchestrator")),
		now:       opts.Now,
	}, nil
}

// Snapshots exposes the snapshot store so hosts can inspect pending flows.
func (o *Orchestrator) Snapshots() SnapshotStore { return o.snapshots }

// Start runs the team's flow for goal until it completes, suspends for
// approval or fails. A session with a suspended flow must resume it first.
func (o *Orchestrator) Start(ctx context.Context, sess *Session, teamID, goal string) (*Outcome, error) {
	if sess == nil {
		return nil, types.NewInvalidRequestError("session is required")
	}
	if strings.TrimSpace(goal) == "" {
		return nil, types.NewInvalidRequestError("goal is required")
	}
	if strings.TrimSpace(teamID) == "" {
		return nil, types.NewInvalidRequestError("team id is required")
	}

	sess.runMu.Lock()
	defer sess.runMu.Unlock()

	ctx, span := tracer.Start(ctx, "teamflow.start")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID), attribute.String("team.id", teamID))
	ctx = types.WithSessionID(ctx, sess.ID)

	_, err := o.snapshots.Get(ctx, sess.ID)
	switch {
	case err == nil:
		return nil, types.NewError(types.ErrFlowPending,
			fmt.Sprintf("session %q has a flow awaiting approval", sess.ID)).
			WithHTTPStatus(http.StatusConflict)
	case !errors.Is(err, ErrSnapshotNotFound):
		return nil, types.NewError(types.ErrInternalError, "check pending flow").WithCause(err)
	}

	var previousHatID string
	if h := sess.ActiveHat(); h != nil {
		previousHatID = h.ID
	}

	out, err := o.start(ctx, sess, teamID, goal, previousHatID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// Resume answers a suspended flow. "approve" finalizes the mission, "retry"
// reruns the whole team from the original goal, anything else re-prompts and
// leaves the flow suspended.
func (o *Orchestrator) Resume(ctx context.Context, sess *Session, input string) (*Outcome, error) {
	if sess == nil {
		return nil, types.NewInvalidRequestError("session is required")
	}

	sess.runMu.Lock()
	defer sess.runMu.Unlock()

	ctx, span := tracer.Start(ctx, "teamflow.resume")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID))
	ctx = types.WithSessionID(ctx, sess.ID)

	snap, err := o.snapshots.Get(ctx, sess.ID)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil, noPendingFlow(sess.ID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "load pending flow").WithCause(err)
	}

	decision := ParseDecision(input)
	span.SetAttributes(attribute.String("decision", decision.String()))
	if decision == DecisionInvalid {
		o.emit(ctx, Event{
			Type:      EventReprompt,
			SessionID: sess.ID,
			RunID:     snap.RunID,
			TeamID:    snap.TeamID,
			State:     StateAwaitingApproval,
			Pending:   snap.Pending,
			Message:   RepromptMessage,
		})
		out := outcomeFromSnapshot(snap, StateAwaitingApproval)
		out.Reprompt = true
		return out, nil
	}

	if err := o.snapshots.Delete(ctx, sess.ID); err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil, noPendingFlow(sess.ID)
		}
		return nil, types.NewError(types.ErrInternalError, "consume pending flow").WithCause(err)
	}
	o.metrics.RecordResumed()
	sess.resetRetries()

	o.logger.Info("flow resumed",
		zap.String("session_id", sess.ID),
		zap.String("run_id", snap.RunID),
		zap.String("decision", decision.String()))

	if decision == DecisionRetry {
		out, err := o.start(ctx, sess, snap.TeamID, snap.Goal, snap.PreviousHatID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if out == nil {
				// The snapshot is already consumed; nothing is pending any more.
				o.abandonRestart(ctx, sess, snap, err)
			}
		}
		return out, err
	}
	return o.finish(ctx, sess, snap), nil
}

// abandonRestart leaves the session Abandoned when a retry could not start a run.
func (o *Orchestrator) abandonRestart(ctx context.Context, sess *Session, snap *Snapshot, err error) {
	sess.setState(StateAbandoned)
	o.restoreHat(ctx, sess, snap.PreviousHatID)
	o.metrics.RecordFlowFinished(snap.TeamID, string(StateAbandoned), "")
	o.logger.Error("retry could not start",
		zap.String("session_id", sess.ID),
		zap.String("run_id", snap.RunID),
		zap.Error(err))
	o.emit(ctx, Event{
		Type:      EventAbandoned,
		SessionID: sess.ID,
		RunID:     snap.RunID,
		TeamID:    snap.TeamID,
		State:     StateAbandoned,
		Message:   err.Error(),
	})
}

func noPendingFlow(sessionID string) error {
	return types.NewError(types.ErrNoPendingFlow,
		fmt.Sprintf("session %q has no flow awaiting approval", sessionID)).
		WithHTTPStatus(http.StatusConflict)
}

func (o *Orchestrator) start(ctx context.Context, sess *Session, teamID, goal, previousHatID string) (*Outcome, error) {
	members, err := o.hats.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "list team").WithCause(err)
	}
	if len(members) == 0 {
		return nil, types.NewError(types.ErrTeamNotFound,
			fmt.Sprintf("team %q has no active hats", teamID)).
			WithHTTPStatus(http.StatusNotFound)
	}

	r := &run{
		o:             o,
		sess:          sess,
		id:            uuid.NewString(),
		teamID:        teamID,
		goal:          goal,
		previousHatID: previousHatID,
		members:       members,
	}
	ctx = types.WithRunID(ctx, r.id)

	sess.resetRetries()
	sess.setState(StateRunning)
	o.metrics.RecordFlowStarted(teamID)
	fields := []zap.Field{
		zap.String("session_id", sess.ID),
		zap.String("run_id", r.id),
		zap.String("team_id", teamID),
		zap.Int("hats", len(members)),
	}
	if user, ok := types.UserID(ctx); ok {
		fields = append(fields, zap.String("user_id", user))
	}
	o.logger.Info("flow started", fields...)
	r.emit(ctx, Event{Type: EventFlowStarted, Message: goal})

	return r.execute(ctx)
}

// finish completes an approved (or gate-free) flow and runs the finalizer.
// Finalizer problems end up in Outcome.MissionErr; the flow still completes.
func (o *Orchestrator) finish(ctx context.Context, sess *Session, snap *Snapshot) *Outcome {
	sess.setState(StateCompleted)
	sess.resetRetries()
	o.restoreHat(ctx, sess, snap.PreviousHatID)

	result := mission.Classify(snap.MissionSuccess, snap.RevisionRequired)
	out := outcomeFromSnapshot(snap, StateCompleted)
	out.FinalOutput = snap.Pending

	o.emit(ctx, Event{
		Type:      EventCompleted,
		SessionID: sess.ID,
		RunID:     snap.RunID,
		TeamID:    snap.TeamID,
		State:     StateCompleted,
		Outcome:   result.Label(),
	})

	if o.finalizer != nil {
		rec, location, err := o.finalizer.Finalize(ctx, FinalizeInput{
			TeamID:           snap.TeamID,
			Goal:             snap.Goal,
			Steps:            snap.Steps,
			MissionSuccess:   snap.MissionSuccess,
			RevisionRequired: snap.RevisionRequired,
		})
		out.Mission = rec
		out.MissionLocation = location
		out.MissionErr = err
		if err != nil {
			o.logger.Warn("mission finalized with errors",
				zap.String("session_id", sess.ID),
				zap.String("run_id", snap.RunID),
				zap.Error(err))
		}

		if o.finalizer.Archives() {
			var archiveErr error
			if types.IsErrorCode(err, types.ErrArchivalFailure) {
				archiveErr = err
			}
			o.metrics.RecordMissionArchived(string(result), archiveErr)
		}
		if location != "" {
			o.emit(ctx, Event{
				Type:      EventMissionArchived,
				SessionID: sess.ID,
				RunID:     snap.RunID,
				TeamID:    snap.TeamID,
				State:     StateCompleted,
				Outcome:   result.Label(),
				Message:   location,
			})
		}
	}

	o.metrics.RecordFlowFinished(snap.TeamID, string(StateCompleted), string(result))
	o.logger.Info("flow completed",
		zap.String("session_id", sess.ID),
		zap.String("run_id", snap.RunID),
		zap.String("outcome", string(result)),
		zap.Int("steps", len(snap.Steps)))
	return out
}

// restoreHat puts back the hat the session wore before the flow started.
func (o *Orchestrator) restoreHat(ctx context.Context, sess *Session, hatID string) {
	if hatID == "" {
		sess.Wear(nil)
		return
	}
	h, err := o.hats.Get(ctx, hatID)
	if err != nil {
		o.logger.Warn("previous hat not restored", zap.String("hat_id", hatID), zap.Error(err))
		sess.Wear(nil)
		return
	}
	sess.Wear(h)
}

func (o *Orchestrator) emit(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = o.now()
	}
	o.notifier.Notify(ctx, ev)
}

func outcomeFromSnapshot(snap *Snapshot, st State) *Outcome {
	return &Outcome{
		SessionID:        snap.SessionID,
		RunID:            snap.RunID,
		TeamID:           snap.TeamID,
		Goal:             snap.Goal,
		State:            st,
		Steps:            types.CloneSteps(snap.Steps),
		Pending:          snap.Pending,
		Verdict:          snap.Verdict,
		MissionSuccess:   snap.MissionSuccess,
		RevisionRequired: snap.RevisionRequired,
	}
}

// =============================================================================
// 🔁 run: one pass over a team
// =============================================================================

type run struct {
	o             *Orchestrator
	sess          *Session
	id            string
	teamID        string
	goal          string
	previousHatID string
	members       []*hat.Hat

	steps            []types.FlowStep
	missionSuccess   bool
	revisionRequired bool
}

func (r *run) execute(ctx context.Context) (*Outcome, error) {
	input := r.goal
	for _, h := range r.members {
		output, err := r.invoke(ctx, h, input, types.StepInitial)
		if err != nil {
			return r.abandon(ctx, err)
		}
		if h.QualityGate {
			return r.review(ctx, h, input, output)
		}
		input = output
	}

	// No gate in the team: nothing to approve.
	return r.o.finish(ctx, r.sess, r.snapshot(input, "")), nil
}

// review runs the critique loop for gate. judged is the text the gate just
// evaluated and critique is the gate's output on it.
func (r *run) review(ctx context.Context, gate *hat.Hat, judged, critique string) (*Outcome, error) {
	var (
		targetInput string
		haveTarget  bool
	)
	for {
		verdict := ParseVerdict(critique)
		r.o.metrics.RecordVerdict(verdict.String())

		switch verdict {
		case VerdictApproved:
			r.missionSuccess = true
			return r.suspend(ctx, judged, verdict)
		case VerdictRevisionRequired:
			r.revisionRequired = true
		default:
			return r.suspend(ctx, judged, verdict)
		}

		target, ok := r.retryTarget(ctx, gate)
		if !ok {
			return r.suspend(ctx, judged, VerdictUnclear)
		}
		if !haveTarget {
			// The target's original input; later rounds never stack feedback.
			targetInput = r.steps[len(r.steps)-2].Input
			haveTarget = true
		}

		count := r.sess.incrementRetry(target.ID)
		if count > gate.RetryLimit {
			r.o.metrics.RecordRetry(target.ID, true)
			r.o.logger.Info("retry limit reached",
				zap.String("run_id", r.id),
				zap.String("hat_id", target.ID),
				zap.Int("retries", count-1),
				zap.Int("limit", gate.RetryLimit))
			r.emit(ctx, Event{
				Type:    EventRetryLimitReached,
				Verdict: verdict.String(),
				Message: fmt.Sprintf("retry limit %d reached for %s", gate.RetryLimit, target.Name),
			})
			return r.suspend(ctx, judged, verdict)
		}

		r.o.metrics.RecordRetry(target.ID, false)
		r.sess.setState(StateAwaitingRetryDecision)
		r.emit(ctx, Event{
			Type:    EventRetryScheduled,
			Verdict: verdict.String(),
			Message: fmt.Sprintf("retry %d/%d for %s", count, gate.RetryLimit, target.Name),
		})
		r.sess.setState(StateRunning)

		retried, err := r.invoke(ctx, target, withFeedback(targetInput, critique), types.StepRetry)
		if err != nil {
			return r.abandon(ctx, err)
		}
		critique, err = r.invoke(ctx, gate, retried, types.StepReview)
		if err != nil {
			return r.abandon(ctx, err)
		}
		judged = retried
	}
}

// retryTarget resolves the hat behind the step the gate just judged.
func (r *run) retryTarget(ctx context.Context, gate *hat.Hat) (*hat.Hat, bool) {
	if len(r.steps) < 2 {
		r.warn(ctx, "revision requested with nothing to revise", nil)
		return nil, false
	}
	id := r.steps[len(r.steps)-2].HatID
	for _, m := range r.members {
		if m.ID == id {
			return m, true
		}
	}
	r.warn(ctx, "retry target not in team", types.NewMalformedReferenceError(gate.ID, id))
	return nil, false
}

func (r *run) invoke(ctx context.Context, h *hat.Hat, input string, kind types.StepKind) (string, error) {
	r.sess.Wear(h)
	output, err := r.o.responder.Generate(ctx, input, h)
	if err != nil {
		if !types.IsErrorCode(err, types.ErrGenerationFailure) {
			err = types.NewGenerationError(h.ID, err)
		}
		return "", err
	}

	step := types.FlowStep{
		HatID:     h.ID,
		HatName:   h.Name,
		Input:     input,
		Output:    output,
		Kind:      kind,
		Timestamp: r.o.now(),
	}
	r.steps = append(r.steps, step)
	r.remember(ctx, h, input, output)
	r.o.metrics.RecordStep(h.Name, string(kind))
	r.emit(ctx, Event{Type: EventStep, Step: &step})
	return output, nil
}

// remember writes both sides of a step to the hat's memory. Failures are
// logged only; the step log stays authoritative.
func (r *run) remember(ctx context.Context, h *hat.Hat, input, output string) {
	if r.o.memory == nil {
		return
	}
	if err := r.o.memory.Append(ctx, h.ID, input, memory.RoleUser, h.MemoryTags); err != nil {
		r.o.logger.Warn("memory append failed", zap.String("hat_id", h.ID), zap.Error(err))
		return
	}
	if err := r.o.memory.Append(ctx, h.ID, output, memory.RoleAssistant, h.MemoryTags); err != nil {
		r.o.logger.Warn("memory append failed", zap.String("hat_id", h.ID), zap.Error(err))
	}
}

func (r *run) suspend(ctx context.Context, pending string, verdict Verdict) (*Outcome, error) {
	snap := r.snapshot(pending, verdict.String())
	if err := r.o.snapshots.Create(ctx, snap); err != nil {
		if errors.Is(err, ErrSnapshotExists) {
			err = types.NewError(types.ErrFlowPending,
				fmt.Sprintf("session %q already has a flow awaiting approval", r.sess.ID)).
				WithHTTPStatus(http.StatusConflict)
		} else {
			err = types.NewError(types.ErrInternalError, "persist suspended flow").WithCause(err)
		}
		return r.abandon(ctx, err)
	}

	r.sess.setState(StateAwaitingApproval)
	r.o.metrics.RecordSuspended(verdict.String())
	r.o.logger.Info("flow awaiting approval",
		zap.String("session_id", r.sess.ID),
		zap.String("run_id", r.id),
		zap.String("verdict", verdict.String()),
		zap.Bool("mission_success", r.missionSuccess),
		zap.Bool("revision_required", r.revisionRequired))
	r.emit(ctx, Event{
		Type:    EventSuspended,
		Verdict: verdict.String(),
		Pending: pending,
		Message: "Reply 'approve' or 'retry'.",
	})
	return outcomeFromSnapshot(snap, StateAwaitingApproval), nil
}

// abandon ends the run on an error. The log built so far is returned with it.
func (r *run) abandon(ctx context.Context, err error) (*Outcome, error) {
	r.sess.setState(StateAbandoned)
	r.sess.resetRetries()
	r.o.restoreHat(ctx, r.sess, r.previousHatID)
	r.o.metrics.RecordFlowFinished(r.teamID, string(StateAbandoned), "")
	r.o.logger.Error("flow abandoned",
		zap.String("session_id", r.sess.ID),
		zap.String("run_id", r.id),
		zap.Int("steps", len(r.steps)),
		zap.Error(err))
	r.emit(ctx, Event{Type: EventAbandoned, Message: err.Error()})
	return outcomeFromSnapshot(r.snapshot("", ""), StateAbandoned), err
}

func (r *run) warn(ctx context.Context, msg string, err error) {
	fields := []zap.Field{zap.String("run_id", r.id)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		msg = msg + ": " + err.Error()
	}
	r.o.logger.Warn(msg, fields...)
	r.emit(ctx, Event{Type: EventWarning, Message: msg})
}

func (r *run) snapshot(pending, verdict string) *Snapshot {
	return &Snapshot{
		SessionID:        r.sess.ID,
		RunID:            r.id,
		TeamID:           r.teamID,
		Goal:             r.goal,
		Steps:            types.CloneSteps(r.steps),
		MissionSuccess:   r.missionSuccess,
		RevisionRequired: r.revisionRequired,
		Pending:          pending,
		Verdict:          verdict,
		PreviousHatID:    r.previousHatID,
		CreatedAt:        r.o.now(),
	}
}

func (r *run) emit(ctx context.Context, ev Event) {
	ev.SessionID = r.sess.ID
	ev.RunID = r.id
	ev.TeamID = r.teamID
	if ev.State == "" {
		ev.State = r.sess.State()
	}
	r.o.emit(ctx, ev)
}
