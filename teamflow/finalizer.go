package teamflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/mission"
	"github.com/chin3/hat-manager/types"
	"go.uber.org/zap"
)

// AnalystHatID identifies the synthetic hat that writes mission debriefs.
const AnalystHatID = "mission_analyst"

// FinalizerConfig tunes mission finalization.
type FinalizerConfig struct {
	// AnalystModel is the model used for the debrief. Empty uses hat.DefaultModel.
	AnalystModel string
}

// FinalizeInput is what a completed flow hands to the finalizer.
type FinalizeInput struct {
	TeamID           string
	Goal             string
	Steps            []types.FlowStep
	MissionSuccess   bool
	RevisionRequired bool
}

// Finalizer turns a finished flow into an archived mission record.
type Finalizer struct {
	responder Responder
	hats      hat.Store
	archive   mission.Archive
	cfg       FinalizerConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewFinalizer creates a finalizer. A nil archive skips persistence.
func NewFinalizer(responder Responder, hats hat.Store, archive mission.Archive, cfg FinalizerConfig, logger *zap.Logger) *Finalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AnalystModel == "" {
		cfg.AnalystModel = hat.DefaultModel
	}
	return &Finalizer{
		responder: responder,
		hats:      hats,
		archive:   archive,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "finalizer")),
		now:       time.Now,
	}
}

// Finalize builds the mission record: debrief, contribution tally and one
// reflection per team hat, then archives it. Each part is best effort. The
// returned record holds whatever was produced and the joined error lists
// what failed. The string is the archive location, empty when not archived.
func (f *Finalizer) Finalize(ctx context.Context, in FinalizeInput) (*mission.Record, string, error) {
	outcome := mission.Classify(in.MissionSuccess, in.RevisionRequired)
	now := f.now()
	rec := &mission.Record{
		ID:               mission.IDFor(now),
		Timestamp:        now,
		TeamID:           in.TeamID,
		Goal:             in.Goal,
		Outcome:          outcome,
		OutcomeLabel:     outcome.Label(),
		MissionSuccess:   in.MissionSuccess,
		RevisionRequired: in.RevisionRequired,
		Steps:            types.CloneSteps(in.Steps),
		Reflections:      []mission.Reflection{},
	}

	var errs []error
	fail := func(err error) {
		errs = append(errs, err)
		rec.Errors = append(rec.Errors, err.Error())
	}

	debrief, err := f.responder.Generate(ctx, debriefPrompt(in.Goal, outcome, in.Steps), f.analyst())
	if err != nil {
		fail(fmt.Errorf("debrief: %w", err))
	} else {
		rec.Debrief = debrief
	}

	rec.Contributions = Tally(in.Steps)
	rec.MVP, rec.RunnerUp = Standouts(rec.Contributions)

	if f.hats != nil {
		members, err := f.hats.ListByTeam(ctx, in.TeamID)
		if err != nil {
			fail(fmt.Errorf("list team for reflections: %w", err))
		}
		for _, h := range members {
			text, err := f.responder.Generate(ctx, reflectionPrompt(h, in.Goal, outcome), h)
			if err != nil {
				fail(fmt.Errorf("reflection from %s: %w", h.Name, err))
				continue
			}
			rec.Reflections = append(rec.Reflections, mission.Reflection{
				HatID:   h.ID,
				HatName: h.Name,
				Text:    strings.TrimSpace(text),
			})
		}
	}

	var location string
	if f.archive != nil {
		location, err = f.archive.Save(ctx, rec)
		if err != nil {
			errs = append(errs, types.NewArchivalError(err))
			f.logger.Error("mission archival failed", zap.String("mission_id", rec.ID), zap.Error(err))
		} else {
			f.logger.Info("mission archived",
				zap.String("mission_id", rec.ID),
				zap.String("location", location),
				zap.String("outcome", string(outcome)))
		}
	}

	return rec, location, errors.Join(errs...)
}

// Archives reports whether finalized records are persisted.
func (f *Finalizer) Archives() bool { return f.archive != nil }

func (f *Finalizer) analyst() *hat.Hat {
	h := hat.New("Mission Analyst", hat.RoleSummarizer,
		"You review completed multi-agent missions and write concise, honest debriefs.")
	h.ID = AnalystHatID
	h.Model = f.cfg.AnalystModel
	return h
}

// Tally counts steps per hat name in order of first appearance, then sorts
// by count descending. Equal counts keep first-appearance order.
func Tally(steps []types.FlowStep) []mission.Contribution {
	index := make(map[string]int)
	out := make([]mission.Contribution, 0)
	for _, s := range steps {
		i, ok := index[s.HatName]
		if !ok {
			i = len(out)
			index[s.HatName] = i
			out = append(out, mission.Contribution{HatName: s.HatName})
		}
		out[i].Steps++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Steps > out[j].Steps })
	return out
}

// Standouts picks the MVP and, when at least two hats contributed, the
// runner-up from a sorted tally.
func Standouts(tally []mission.Contribution) (mvp, runnerUp string) {
	if len(tally) > 0 {
		mvp = tally[0].HatName
	}
	if len(tally) > 1 {
		runnerUp = tally[1].HatName
	}
	return mvp, runnerUp
}
