// Package retry turns a non-zero action result into an interactive operator
// decision: repeat the action, keep the failure, or skip it.
package retry

import (
	"context"
	"log/slog"
	"strings"

	"github.com/survey-ops/surveyor/internal/log"
)

// Prompt is what the operator sees on the console after a failed action.
const Prompt = "Exit code non-zero: Do you want to repeat the survey? (yes/no/skip): "

// Prompter carries the retry conversation with the operator. The bridge
// session's single-shot endpoints satisfy it.
type Prompter interface {
	WriteOutputOnce(ctx context.Context, text string) error
	ReadInputOnce(ctx context.Context) (string, error)
}

// Action is one supervised unit of work returning an integer result code.
type Action func(ctx context.Context) int

// Orchestrator supervises actions and offers retries through a Prompter.
type Orchestrator struct {
	prompter Prompter
	logger   *slog.Logger
}

func New(p Prompter) *Orchestrator {
	return &Orchestrator{
		prompter: p,
		logger:   log.WithComponent("retry"),
	}
}

// Supervise runs action and, while the result is non-zero, asks the operator
// whether to repeat. "yes" reruns the action, "no" keeps the failing result,
// "skip" forces success; anything else re-prompts. An iterative loop with an
// attempt counter, never recursion. A cancelled context or an unanswerable
// prompt keeps the current result.
func (o *Orchestrator) Supervise(ctx context.Context, action Action) int {
	result := action(ctx)

	for attempt := 1; result != 0; attempt++ {
		if ctx.Err() != nil {
			o.logger.Warn("shutdown during retry decision", "result", result)
			return result
		}
		o.logger.Warn("action failed, asking operator", "result", result, "attempt", attempt)

		answer, err := o.ask(ctx)
		if err != nil {
			o.logger.Warn("retry prompt unanswered", "error", err, "result", result)
			return result
		}

		switch answer {
		case "yes":
			o.logger.Info("operator chose retry", "attempt", attempt)
			result = action(ctx)
		case "no":
			o.logger.Info("operator kept the failure", "result", result)
			return result
		case "skip":
			o.logger.Info("operator skipped the failure", "result", result)
			return 0
		default:
			o.logger.Info("unrecognized answer, asking again", "answer", answer)
		}
	}
	return result
}

func (o *Orchestrator) ask(ctx context.Context) (string, error) {
	if err := o.prompter.WriteOutputOnce(ctx, Prompt); err != nil {
		return "", err
	}
	answer, err := o.prompter.ReadInputOnce(ctx)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(answer)), nil
}
