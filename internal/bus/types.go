// Package bus carries the command, acknowledgment, and plan-status records
// exchanged with the robot executive. The transport underneath (in-memory hub
// or Redis pub/sub) is assumed to deliver records reliably and in order; this
// package only moves them.
package bus

// AckStatus is the completion status carried by an acknowledgment.
type AckStatus string

const (
	// AckPending means the command was received but has not completed.
	AckPending AckStatus = "pending"
	// AckOK means the command completed successfully.
	AckOK AckStatus = "ok"
	// AckFailed means the command completed with an error.
	AckFailed AckStatus = "failed"
)

// Terminal reports whether the status ends a wait. Pending acks keep the
// wait open; everything else resolves it.
func (s AckStatus) Terminal() bool {
	return s != AckPending
}

// Command is one outbound command record requiring acknowledgment.
type Command struct {
	Name          string   `json:"name"`
	Args          []string `json:"args,omitempty"`
	CorrelationID string   `json:"correlation_id"`
	Source        string   `json:"source"`
	Origin        string   `json:"origin"`
}

// Ack is an asynchronous acknowledgment for a previously published command.
// Many acks may arrive for one command; the first terminal one wins.
type Ack struct {
	CorrelationID string    `json:"correlation_id"`
	Status        AckStatus `json:"status"`
	Message       string    `json:"message,omitempty"`
}

// StepStatus is the execution state of one plan step.
type StepStatus int

const (
	StepQueued    StepStatus = 0
	StepExecuting StepStatus = 1
	StepPaused    StepStatus = 2
	StepCompleted StepStatus = 3
)

// PlanStatus reports progress of a named multi-step plan.
type PlanStatus struct {
	Plan   string     `json:"plan_name"`
	Step   int        `json:"step_index"`
	Status StepStatus `json:"step_status"`
}
