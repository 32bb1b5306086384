// Package command implements the correlated command client: it publishes one
// command at a time onto the bus and blocks, with bounded polling, until a
// matching terminal acknowledgment arrives or the poll budget runs out.
package command

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/survey-ops/surveyor/internal/bus"
	"github.com/survey-ops/surveyor/internal/log"
)

// Command names understood by the remote executive.
const (
	CmdStartRecording = "startRecording"
	CmdStopRecording  = "stopRecording"
)

// Config bounds the acknowledgment and plan-progress waits.
type Config struct {
	// PollInterval is the sleep between poll iterations.
	PollInterval time.Duration
	// AckBudget is the maximum number of poll iterations spent waiting
	// for a terminal acknowledgment.
	AckBudget int
	// PlanBudget is the maximum number of poll iterations spent waiting
	// for plan completion. Plans run for minutes, so this is usually set
	// much higher than AckBudget.
	PlanBudget int
}

// DefaultConfig returns the stock poll bounds: one second between
// iterations, ten iterations for an ack, six hundred for a plan.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		AckBudget:    10,
		PlanBudget:   600,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.AckBudget <= 0 {
		c.AckBudget = d.AckBudget
	}
	if c.PlanBudget <= 0 {
		c.PlanBudget = d.PlanBudget
	}
}

// Client sends correlated commands. At most one command is in flight at a
// time; SendAndWait serializes callers to preserve that.
type Client struct {
	bus    bus.Bus
	source string
	cfg    Config
	logger *slog.Logger

	sendMu sync.Mutex

	mu       sync.Mutex
	corrID   string
	acks     []bus.Ack
	lastAck  bus.Ack
	hadAck   bool
	planWait bool
	planName string

	unsubAck  func()
	unsubPlan func()
}

// New subscribes the client to acknowledgment and plan-progress events on b.
// source tags outbound commands and prefixes correlation identifiers.
func New(b bus.Bus, source string, cfg Config) (*Client, error) {
	cfg.applyDefaults()
	c := &Client{
		bus:    b,
		source: source,
		cfg:    cfg,
		logger: log.WithComponent("command").With("source", source),
	}

	unsubAck, err := b.SubscribeAcks(c.onAck)
	if err != nil {
		return nil, err
	}
	unsubPlan, err := b.SubscribePlanStatus(c.onPlanStatus)
	if err != nil {
		unsubAck()
		return nil, err
	}
	c.unsubAck = unsubAck
	c.unsubPlan = unsubPlan
	return c, nil
}

// Close detaches the client from the bus.
func (c *Client) Close() {
	if c.unsubAck != nil {
		c.unsubAck()
	}
	if c.unsubPlan != nil {
		c.unsubPlan()
	}
}

// SendAndWait publishes cmd with a fresh time-derived correlation identifier
// and polls until the first terminal acknowledgment with that identifier
// arrives. Returns 0 on an "ok" status and 1 on failure, timeout, or an
// unreachable bus; the distinguishing detail is logged, not returned.
//
// A non-terminal ("pending") acknowledgment re-arms the wait without
// consuming a poll iteration.
func (c *Client) SendAndWait(ctx context.Context, cmd bus.Command) int {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	corrID := c.source + strconv.FormatInt(time.Now().UnixNano(), 10)
	cmd.CorrelationID = corrID
	if cmd.Source == "" {
		cmd.Source = c.source
	}
	if cmd.Origin == "" {
		cmd.Origin = c.source
	}

	logger := c.logger.With("command", cmd.Name, "correlation_id", corrID)

	c.mu.Lock()
	c.corrID = corrID
	c.acks = nil
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.corrID = ""
		c.acks = nil
		c.mu.Unlock()
	}()

	if err := c.bus.Publish(ctx, cmd); err != nil {
		logger.Error("publish failed", "error", err, "diagnostic", "unreachable")
		return 1
	}
	logger.Info("command published", "args", cmd.Args)

	for counter := 0; counter < c.cfg.AckBudget; {
		c.mu.Lock()
		queued := c.acks
		c.acks = nil
		c.mu.Unlock()

		for _, ack := range queued {
			switch ack.Status {
			case bus.AckPending:
				logger.Info("command still executing")
			case bus.AckOK:
				logger.Info("command completed")
				return 0
			default:
				logger.Warn("command failed", "message", ack.Message, "diagnostic", "failed")
				return 1
			}
		}
		if len(queued) > 0 {
			// A pending ack re-arms the wait without consuming an
			// iteration.
			continue
		}

		select {
		case <-ctx.Done():
			logger.Warn("wait aborted by shutdown", "diagnostic", "shutdown")
			return 1
		case <-time.After(c.cfg.PollInterval):
		}
		counter++
	}

	logger.Warn("no terminal acknowledgment within poll budget", "diagnostic", "timeout")
	return 1
}

// ArmPlan records the plan name whose progress the next WaitForPlan call
// tracks. Must be called before the plan is published for execution.
func (c *Client) ArmPlan(name string) {
	c.mu.Lock()
	c.planName = name
	c.planWait = true
	c.mu.Unlock()
	c.logger.Info("tracking plan", "plan", name)
}

// WaitForPlan polls until the armed plan reaches a terminal step status or
// progress arrives for a different plan (abandonment, resolved as complete).
// Returns 0 when the wait flag clears, 1 on timeout or shutdown.
func (c *Client) WaitForPlan(ctx context.Context) int {
	c.mu.Lock()
	name := c.planName
	c.mu.Unlock()
	logger := c.logger.With("plan", name)

	for counter := 0; counter < c.cfg.PlanBudget; counter++ {
		c.mu.Lock()
		waiting := c.planWait
		c.mu.Unlock()
		if !waiting {
			logger.Info("plan wait resolved")
			return 0
		}

		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.planWait = false
			c.mu.Unlock()
			logger.Warn("plan wait aborted by shutdown", "diagnostic", "shutdown")
			return 1
		case <-time.After(c.cfg.PollInterval):
		}
	}

	c.mu.Lock()
	c.planWait = false
	c.mu.Unlock()
	logger.Warn("plan did not complete within poll budget", "diagnostic", "timeout")
	return 1
}

// LastAck returns the most recent acknowledgment observed for this client's
// own commands, if any.
func (c *Client) LastAck() (bus.Ack, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAck, c.hadAck
}

// onAck records every acknowledgment matching the in-flight correlation
// identifier. Acks are queued rather than gated so a pending ack followed
// immediately by a terminal one never loses the terminal status to the
// polling window.
func (c *Client) onAck(a bus.Ack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.corrID == "" || a.CorrelationID != c.corrID {
		return
	}
	c.acks = append(c.acks, a)
	c.lastAck = a
	c.hadAck = true
}

func (c *Client) onPlanStatus(ps bus.PlanStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.planWait {
		return
	}
	if strings.Contains(ps.Plan, c.planName) {
		c.logger.Info("plan progress", "plan", ps.Plan, "step", ps.Step, "status", int(ps.Status))
		if ps.Status == bus.StepCompleted {
			c.planWait = false
		}
		return
	}
	// A different plan is running; the one we armed will never complete.
	c.logger.Info("plan changed, abandoning wait", "awaited", c.planName, "observed", ps.Plan)
	c.planWait = false
}
