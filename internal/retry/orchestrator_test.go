package retry

import (
	"context"
	"errors"
	"testing"
)

// scriptedPrompter replays canned operator answers and records every prompt.
type scriptedPrompter struct {
	answers []string
	prompts []string
}

func (p *scriptedPrompter) WriteOutputOnce(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.prompts = append(p.prompts, text)
	return nil
}

func (p *scriptedPrompter) ReadInputOnce(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(p.answers) == 0 {
		return "", errors.New("script exhausted")
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func TestSuperviseSuccessNeedsNoPrompt(t *testing.T) {
	p := &scriptedPrompter{}
	o := New(p)

	got := o.Supervise(context.Background(), func(ctx context.Context) int { return 0 })
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if len(p.prompts) != 0 {
		t.Fatalf("successful action must not prompt, saw %d prompts", len(p.prompts))
	}
}

func TestSuperviseSkipForcesSuccess(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"skip"}}
	o := New(p)

	got := o.Supervise(context.Background(), func(ctx context.Context) int { return 1 })
	if got != 0 {
		t.Fatalf("expected skip to force 0, got %d", got)
	}
}

func TestSuperviseNoKeepsOriginalResult(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"no"}}
	o := New(p)

	got := o.Supervise(context.Background(), func(ctx context.Context) int { return 3 })
	if got != 3 {
		t.Fatalf("expected original result 3, got %d", got)
	}
}

func TestSuperviseYesRerunsUntilSuccess(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"yes"}}
	o := New(p)

	calls := 0
	got := o.Supervise(context.Background(), func(ctx context.Context) int {
		calls++
		if calls == 1 {
			return 1
		}
		return 0
	})
	if got != 0 {
		t.Fatalf("expected 0 after retry, got %d", got)
	}
	if calls != 2 {
		t.Fatalf("expected 2 action runs, got %d", calls)
	}
}

func TestSuperviseRepromptsOnUnrecognizedAnswer(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"maybe", " YES "}}
	o := New(p)

	calls := 0
	got := o.Supervise(context.Background(), func(ctx context.Context) int {
		calls++
		if calls == 1 {
			return 1
		}
		return 0
	})
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if len(p.prompts) != 2 {
		t.Fatalf("expected a re-prompt, saw %d prompts", len(p.prompts))
	}
	if p.prompts[0] != Prompt {
		t.Fatalf("unexpected prompt text %q", p.prompts[0])
	}
}

func TestSuperviseKeepsResultOnShutdown(t *testing.T) {
	p := &scriptedPrompter{answers: []string{"yes"}}
	o := New(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := o.Supervise(ctx, func(ctx context.Context) int { return 2 })
	if got != 2 {
		t.Fatalf("expected 2 on shutdown, got %d", got)
	}
	if len(p.prompts) != 0 {
		t.Fatal("must not prompt after shutdown")
	}
}

func TestSuperviseKeepsResultWhenPromptFails(t *testing.T) {
	p := &scriptedPrompter{}
	o := New(p)

	got := o.Supervise(context.Background(), func(ctx context.Context) int { return 1 })
	if got != 1 {
		t.Fatalf("expected 1 when no answer arrives, got %d", got)
	}
}
