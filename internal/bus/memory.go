package bus

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Bus. Commands published here are handed to command
// subscribers (the simulated executive side), and acks/plan status injected by
// that side fan out to the client callbacks. A small ring buffer keeps the
// most recent commands for observers that attach late.
type Memory struct {
	mu     sync.Mutex
	closed bool

	ring  []Command
	start int
	size  int

	cmdSubs  map[int]func(Command)
	ackSubs  map[int]func(Ack)
	planSubs map[int]func(PlanStatus)
	nextID   int
}

// NewMemory creates an in-memory bus buffering up to capacity recent commands.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 32
	}
	return &Memory{
		ring:     make([]Command, capacity),
		cmdSubs:  make(map[int]func(Command)),
		ackSubs:  make(map[int]func(Ack)),
		planSubs: make(map[int]func(PlanStatus)),
	}
}

func (m *Memory) Publish(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("bus is closed")
	}
	m.pushLocked(cmd)
	subs := make([]func(Command), 0, len(m.cmdSubs))
	for _, fn := range m.cmdSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(cmd)
	}
	return nil
}

// SubscribeCommands registers fn for published commands. Used by the
// loopback executive in tests and by observers.
func (m *Memory) SubscribeCommands(fn func(Command)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("bus is closed")
	}
	id := m.nextID
	m.nextID++
	m.cmdSubs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.cmdSubs, id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) SubscribeAcks(fn func(Ack)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("bus is closed")
	}
	id := m.nextID
	m.nextID++
	m.ackSubs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.ackSubs, id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) SubscribePlanStatus(fn func(PlanStatus)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("bus is closed")
	}
	id := m.nextID
	m.nextID++
	m.planSubs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.planSubs, id)
		m.mu.Unlock()
	}, nil
}

// InjectAck delivers an acknowledgment to all ack subscribers, in the order
// the transport observed it.
func (m *Memory) InjectAck(ack Ack) {
	m.mu.Lock()
	subs := make([]func(Ack), 0, len(m.ackSubs))
	for _, fn := range m.ackSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ack)
	}
}

// InjectPlanStatus delivers a plan-status report to all plan subscribers.
func (m *Memory) InjectPlanStatus(ps PlanStatus) {
	m.mu.Lock()
	subs := make([]func(PlanStatus), 0, len(m.planSubs))
	for _, fn := range m.planSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ps)
	}
}

// Commands returns the buffered recent commands, oldest-first.
func (m *Memory) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, 0, m.size)
	for i := 0; i < m.size; i++ {
		out = append(out, m.ring[(m.start+i)%len(m.ring)])
	}
	return out
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) pushLocked(cmd Command) {
	capacity := len(m.ring)
	if m.size < capacity {
		m.ring[(m.start+m.size)%capacity] = cmd
		m.size++
		return
	}
	// Overwrite oldest.
	m.ring[m.start] = cmd
	m.start = (m.start + 1) % capacity
}
