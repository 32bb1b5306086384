package bus

import "context"

//go:generate mockgen -destination=mocks/mock_bus.go -package=mocks github.com/survey-ops/surveyor/internal/bus Bus

// Bus publishes commands toward the robot executive and delivers its
// acknowledgments and plan-status reports back via callbacks. Callbacks are
// invoked sequentially per subscription; implementations must not invoke a
// callback after its unsubscribe function returns.
type Bus interface {
	// Publish sends one command record. An error means the bus is
	// unreachable or shut down; the record was not delivered.
	Publish(ctx context.Context, cmd Command) error

	// SubscribeAcks registers fn for every acknowledgment record observed.
	SubscribeAcks(fn func(Ack)) (unsubscribe func(), err error)

	// SubscribePlanStatus registers fn for every plan-status record observed.
	SubscribePlanStatus(fn func(PlanStatus)) (unsubscribe func(), err error)

	// Close releases the transport. Publish fails after Close.
	Close() error
}
