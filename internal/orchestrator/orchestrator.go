// Package orchestrator threads a GoalState through the clarify, refine and
// breakdown stages and runs daily check-ins.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/goalbot/internal/agents"
	"github.com/example/goalbot/internal/consistency"
	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/providers/llm"
	"github.com/example/goalbot/internal/safety"
	"github.com/example/goalbot/internal/tools"
	"github.com/example/goalbot/internal/tracing"
)

// State is a position in the pipeline. Runs only move forward.
type State string

const (
	StateStart      State = "start"
	StateClarified  State = "clarified"
	StateRefined    State = "refined"
	StateBrokenDown State = "broken_down"
	StateTerminal   State = "terminal"
)

var stateOrder = map[State]int{
	StateStart:      0,
	StateClarified:  1,
	StateRefined:    2,
	StateBrokenDown: 3,
}

// DefaultStepBudget covers clarify, refine, breakdown and one retry.
const DefaultStepBudget = 4

var ErrInvalidSpan = errors.New("invalid pipeline span")

type Options struct {
	StepBudget  int
	CallTimeout time.Duration
	Verifier    agents.Verifier
	Tools       *tools.Registry
	Hub         *Hub
	Logger      *zap.Logger
}

type Pipeline struct {
	client llm.Client
	opts   Options
	runner *agents.ToolRunner
	logger *zap.Logger
}

func New(client llm.Client, opts Options) *Pipeline {
	if opts.StepBudget <= 0 {
		opts.StepBudget = DefaultStepBudget
	}
	if opts.Verifier == nil {
		opts.Verifier = consistency.NewValidator(consistency.DefaultRules())
	}
	if opts.Tools == nil {
		opts.Tools = tools.NewGoalRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		client: client,
		opts:   opts,
		runner: &agents.ToolRunner{Registry: opts.Tools},
		logger: logger.Named("pipeline"),
	}
}

// Hub returns the event hub runs publish to, possibly nil.
func (p *Pipeline) Hub() *Hub { return p.opts.Hub }

// Result is the outcome of one run. State holds every stage update applied
// during the run; Final is where the run stopped.
type Result struct {
	RunID   string
	State   models.GoalState
	Final   State
	Crisis  bool
	Unsafe  bool
	Retried bool
	Calls   int
}

func (p *Pipeline) Clarify(ctx context.Context, st models.GoalState) (Result, error) {
	return p.Run(ctx, st, StateStart, StateClarified)
}

func (p *Pipeline) Refine(ctx context.Context, st models.GoalState) (Result, error) {
	return p.Run(ctx, st, StateClarified, StateRefined)
}

func (p *Pipeline) Breakdown(ctx context.Context, st models.GoalState) (Result, error) {
	return p.Run(ctx, st, StateRefined, StateBrokenDown)
}

// RunAll takes a fresh goal all the way to a plan.
func (p *Pipeline) RunAll(ctx context.Context, st models.GoalState) (Result, error) {
	return p.Run(ctx, st, StateStart, StateBrokenDown)
}

// Run executes the stages between from and to. A safety short-circuit stops
// the run early in StateTerminal. If ctx ends the run returns ctx.Err() and
// no state; the caller's st is never modified.
func (p *Pipeline) Run(ctx context.Context, st models.GoalState, from, to State) (Result, error) {
	fi, okFrom := stateOrder[from]
	ti, okTo := stateOrder[to]
	if !okFrom || !okTo || ti <= fi {
		return Result{}, fmt.Errorf("%w: %s -> %s", ErrInvalidSpan, from, to)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	st = detach(st)
	run := &runState{
		id:     uuid.NewString(),
		key:    GoalKey(st.GoalID),
		client: newBudgetClient(p.client, p.opts.StepBudget, p.opts.CallTimeout),
	}
	run.log = p.logger.With(zap.String("run_id", run.id), zap.Int64("goal_id", st.GoalID))

	var res Result
	cur := from
	for cur != to && cur != StateTerminal {
		next, err := p.step(ctx, run, &st, cur, &res)
		if err != nil {
			run.log.Info("pipeline run stopped", zap.String("at", string(cur)), zap.Error(err))
			return Result{}, err
		}
		cur = next
	}

	res.RunID = run.id
	res.State = st
	res.Final = cur
	res.Calls = run.client.Calls()
	run.log.Debug("pipeline run finished", zap.String("final", string(cur)), zap.Int("calls", res.Calls))
	p.publish(run, Event{Event: EventRunCompleted, Payload: map[string]any{
		"final":   cur,
		"crisis":  res.Crisis,
		"unsafe":  res.Unsafe,
		"retried": res.Retried,
		"calls":   res.Calls,
	}})
	return res, nil
}

type runState struct {
	id     string
	key    string
	client *budgetClient
	log    *zap.Logger
}

func (p *Pipeline) step(ctx context.Context, run *runState, st *models.GoalState, cur State, res *Result) (State, error) {
	switch cur {
	case StateStart:
		p.publish(run, Event{Event: EventStageStarted, Stage: agents.StageClarify})
		up, err := agents.NewClarifier(run.client, run.log).Clarify(ctx, *st)
		if err != nil {
			return cur, err
		}
		st.ApplyClarify(up)
		p.publish(run, Event{Event: EventStageCompleted, Stage: agents.StageClarify, Payload: map[string]any{"questions": len(up.Questions)}})
		if up.Crisis {
			return p.shortCircuit(ctx, run, res, agents.StageClarify, "crisis"), nil
		}
		return StateClarified, nil

	case StateClarified:
		if InCrisis(*st) {
			return p.shortCircuit(ctx, run, res, agents.StageClarify, "crisis"), nil
		}
		p.publish(run, Event{Event: EventStageStarted, Stage: agents.StageRefine})
		up, err := agents.NewRefiner(run.client, p.runner, run.log).Refine(ctx, *st)
		if err != nil {
			return cur, err
		}
		st.ApplyRefine(up)
		p.publish(run, Event{Event: EventStageCompleted, Stage: agents.StageRefine, Payload: map[string]any{"category": up.Category}})
		if st.Unsafe() {
			return p.shortCircuit(ctx, run, res, agents.StageRefine, "unsafe"), nil
		}
		return StateRefined, nil

	case StateRefined:
		if st.Unsafe() {
			return p.shortCircuit(ctx, run, res, agents.StageBreakdown, "unsafe"), nil
		}
		p.publish(run, Event{Event: EventStageStarted, Stage: agents.StageBreakdown})
		up, err := agents.NewBreakdowner(run.client, p.opts.Verifier, p.runner, run.log).Breakdown(ctx, *st)
		if err != nil {
			return cur, err
		}
		st.ApplyBreakdown(up)
		if up.Retried {
			res.Retried = true
			p.publish(run, Event{Event: EventRetry, Stage: agents.StageBreakdown})
		}
		p.publish(run, Event{Event: EventStageCompleted, Stage: agents.StageBreakdown, Payload: map[string]any{"tasks": len(up.DailyTasks), "retried": up.Retried}})
		return StateBrokenDown, nil
	}
	return cur, fmt.Errorf("%w: no stage runs from %s", ErrInvalidSpan, cur)
}

func (p *Pipeline) shortCircuit(ctx context.Context, run *runState, res *Result, stage, reason string) State {
	switch reason {
	case "crisis":
		res.Crisis = true
		tracing.Annotate(ctx, tracing.KeyCrisis.Bool(true))
	case "unsafe":
		res.Unsafe = true
		tracing.Annotate(ctx, tracing.KeyUnsafe.Bool(true))
	}
	run.log.Info("pipeline short-circuited", zap.String("stage", stage), zap.String("reason", reason))
	p.publish(run, Event{Event: EventShortCircuit, Stage: stage, Payload: map[string]any{"reason": reason}})
	return StateTerminal
}

// CheckIn runs the check-in stage for one day of a goal's plan.
func (p *Pipeline) CheckIn(ctx context.Context, goalID int64, in agents.CheckInInput) (agents.CheckInResult, error) {
	if err := ctx.Err(); err != nil {
		return agents.CheckInResult{}, err
	}
	run := &runState{
		id:     uuid.NewString(),
		key:    GoalKey(goalID),
		client: newBudgetClient(p.client, 1, p.opts.CallTimeout),
	}
	run.log = p.logger.With(zap.String("run_id", run.id), zap.Int64("goal_id", goalID))

	res, err := agents.NewCheckInCoach(run.client, run.log).CheckIn(ctx, in)
	if err != nil {
		return agents.CheckInResult{}, err
	}
	p.publish(run, Event{Event: EventCheckIn, Stage: agents.StageCheckIn, Payload: map[string]any{
		"day":      in.Day,
		"crisis":   res.CrisisDetected,
		"momentum": res.Assessment.Momentum,
	}})
	return res, nil
}

func (p *Pipeline) publish(run *runState, ev Event) {
	if p.opts.Hub == nil {
		return
	}
	ev.RunID = run.id
	p.opts.Hub.Publish(run.key, ev)
}

// InCrisis reports whether clarification ended in the crisis message.
func InCrisis(st models.GoalState) bool {
	return len(st.ClarificationQuestions) == 1 && st.ClarificationQuestions[0].ID == safety.CrisisQuestionID
}

// detach copies the append-only audit slices so that appends during the run
// never write into the caller's backing arrays.
func detach(st models.GoalState) models.GoalState {
	st.Messages = slices.Clone(st.Messages)
	st.ToolCalls = slices.Clone(st.ToolCalls)
	return st
}
