package survey

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/survey-ops/surveyor/internal/config"
	"github.com/survey-ops/surveyor/internal/events"
	"github.com/survey-ops/surveyor/internal/log"
	"github.com/survey-ops/surveyor/internal/retry"
)

// ProcessRunner runs one external command under supervision. The bridge
// session satisfies it.
type ProcessRunner interface {
	Run(ctx context.Context, command string) int
}

// Commander issues correlated commands to the remote executive. The command
// client satisfies it.
type Commander interface {
	StartRecording(ctx context.Context, description string) int
	StopRecording(ctx context.Context) int
	ChangeExposure(ctx context.Context, val float64) int
	ChangeMap(ctx context.Context, name string) int
	ArmPlan(name string)
	WaitForPlan(ctx context.Context) int
}

// Status is a point-in-time view of the executor for the API.
type Status struct {
	Robot   string `json:"robot"`
	Action  string `json:"action"`
	Run     string `json:"run"`
	Running bool   `json:"running"`
	Result  int    `json:"result"`
}

// Executor serializes survey actions, composing the process supervisor, the
// command client, and the retry orchestrator. All collaborators are passed
// in at construction; the executor holds no ambient state.
type Executor struct {
	cfg   *config.Config
	proc  ProcessRunner
	cmds  Commander
	retry *retry.Orchestrator
	hub   *events.Hub

	// current is the robot this process runs next to; commands for any
	// other robot are namespaced.
	current string

	logger *slog.Logger

	mu     sync.Mutex
	status Status
}

func NewExecutor(cfg *config.Config, proc ProcessRunner, cmds Commander, orch *retry.Orchestrator, hub *events.Hub, currentRobot string) *Executor {
	return &Executor{
		cfg:     cfg,
		proc:    proc,
		cmds:    cmds,
		retry:   orch,
		hub:     hub,
		current: currentRobot,
		logger:  log.WithComponent("survey").With("robot", cfg.Robot),
	}
}

// Status returns the current executor snapshot.
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ExecuteSupervised runs one action under the survey-level retry loop. Each
// operator-approved rerun gets a fresh run label so recordings stay
// distinguishable.
func (e *Executor) ExecuteSupervised(ctx context.Context, a Action) int {
	attempt := 0
	return e.retry.Supervise(ctx, func(ctx context.Context) int {
		attempt++
		return e.Execute(ctx, a, fmt.Sprintf("run%d", attempt))
	})
}

// Execute runs one attempt of action a. Exit codes from its steps
// accumulate; zero means every step succeeded.
func (e *Executor) Execute(ctx context.Context, a Action, run string) int {
	logger := e.logger.With("action", a.Kind.String(), "run", run)
	logger.Info("action started")
	e.setStatus(Status{Robot: e.cfg.Robot, Action: a.String(), Run: run, Running: true})
	e.hub.Publish(events.TypeActionStarted, e.cfg.Robot, a.String())

	code := e.execute(ctx, a, run, logger)

	logger.Info("action finished", "exit_code", code)
	e.setStatus(Status{Robot: e.cfg.Robot, Action: a.String(), Run: run, Result: code})
	e.hub.Publish(events.TypeActionFinished, e.cfg.Robot, map[string]any{
		"action": a.String(), "exit_code": code,
	})
	return code
}

func (e *Executor) execute(ctx context.Context, a Action, run string, logger *slog.Logger) int {
	ns := Namespace(e.current, a.Robot)

	switch a.Kind {
	case KindDock:
		berth, ok := e.cfg.Berth[a.Berth]
		if !ok {
			logger.Error("unknown berth", "berth", a.Berth)
			return 1
		}
		return e.run(ctx, dockCommand(berth, ns))

	case KindUndock:
		return e.run(ctx, undockCommand(ns))

	case KindMove:
		bay, ok := e.cfg.BaysMove[a.To]
		if !ok {
			logger.Error("unknown destination bay", "to", a.To)
			return 1
		}
		code := e.run(ctx, moveCommand(bay, ns))
		if exposure := ExposureChange(e.cfg, a.From, a.To); exposure != 0 {
			code += e.cmds.ChangeExposure(ctx, exposure)
		}
		if mapName := MapChange(e.cfg, a.From, a.To); mapName != "" {
			code += e.cmds.ChangeMap(ctx, mapName)
		}
		return code

	case KindPanorama:
		poses, ok := e.cfg.BaysPano[a.Location]
		if !ok {
			logger.Error("unknown panorama location", "location", a.Location)
			return 1
		}
		code := e.cmds.StartRecording(ctx, "pano_"+a.Location+"_"+run)
		if code != 0 {
			logger.Warn("recording did not start, skipping panorama")
			return code
		}
		code += e.run(ctx, panoramaCommand(poses, ns))
		code += e.cmds.StopRecording(ctx)
		return code

	case KindStereo:
		planName := filepath.Base(a.Plan)
		code := e.cmds.StartRecording(ctx, "stereo_"+planName+"_"+run)
		if code != 0 {
			logger.Warn("recording did not start, skipping stereo survey")
			return code
		}

		plansDir := PlansDir(e.cfg)
		if plansDir == "" {
			logger.Error("no plans directory found")
			code += 1
			code += e.cmds.StopRecording(ctx)
			return code
		}

		e.cmds.ArmPlan(planName)
		code += e.run(ctx, planPubCommand(filepath.Join(plansDir, a.Plan+".fplan"), ns))
		if code == 0 {
			code += e.cmds.WaitForPlan(ctx)
		}
		code += e.cmds.StopRecording(ctx)
		return code

	default:
		logger.Error("unhandled action kind", "kind", int(a.Kind))
		return 1
	}
}

// run executes one external command under the per-command retry loop, so a
// single failed tool invocation can be repeated without redoing the steps
// before it.
func (e *Executor) run(ctx context.Context, command string) int {
	return e.retry.Supervise(ctx, func(ctx context.Context) int {
		return e.proc.Run(ctx, command)
	})
}

func (e *Executor) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}
