package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// Redis is a Bus backed by Redis pub/sub. Records are JSON-encoded onto three
// channels namespaced by robot identity; Redis guarantees per-channel
// publication order, which is the delivery assumption the client relies on.
type Redis struct {
	client *redis.Client
	ns     string
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	pubsubs []*redis.PubSub
	wg      sync.WaitGroup
}

// NewRedis connects to Redis and verifies the connection before returning.
func NewRedis(config RedisConfig, namespace string, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("connected to redis bus", "addr", config.Addr, "db", config.DB, "namespace", namespace)

	return &Redis{
		client: client,
		ns:     namespace,
		logger: logger,
	}, nil
}

func (r *Redis) channel(kind string) string {
	return fmt.Sprintf("surveyor:%s:%s", r.ns, kind)
}

func (r *Redis) Publish(ctx context.Context, cmd Command) error {
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel("command"), data).Err(); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

func (r *Redis) SubscribeAcks(fn func(Ack)) (func(), error) {
	return r.subscribe(r.channel("ack"), func(payload string) {
		ack, err := DecodeAck([]byte(payload))
		if err != nil {
			r.logger.Warn("dropping malformed ack", "error", err)
			return
		}
		fn(ack)
	})
}

func (r *Redis) SubscribePlanStatus(fn func(PlanStatus)) (func(), error) {
	return r.subscribe(r.channel("plan_status"), func(payload string) {
		ps, err := DecodePlanStatus([]byte(payload))
		if err != nil {
			r.logger.Warn("dropping malformed plan status", "error", err)
			return
		}
		fn(ps)
	})
}

// SubscribeCommands registers fn for command records, for executive-side
// consumers and integration tests.
func (r *Redis) SubscribeCommands(fn func(Command)) (func(), error) {
	return r.subscribe(r.channel("command"), func(payload string) {
		cmd, err := DecodeCommand([]byte(payload))
		if err != nil {
			r.logger.Warn("dropping malformed command", "error", err)
			return
		}
		fn(cmd)
	})
}

// InjectAck publishes an acknowledgment record, for the executive side.
func (r *Redis) InjectAck(ctx context.Context, ack Ack) error {
	data, err := EncodeAck(ack)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel("ack"), data).Err()
}

// InjectPlanStatus publishes a plan-status record, for the executive side.
func (r *Redis) InjectPlanStatus(ctx context.Context, ps PlanStatus) error {
	data, err := EncodePlanStatus(ps)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel("plan_status"), data).Err()
}

func (r *Redis) subscribe(channel string, handle func(payload string)) (func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("bus is closed")
	}
	ps := r.client.Subscribe(context.Background(), channel)
	r.pubsubs = append(r.pubsubs, ps)
	r.mu.Unlock()

	// Force the subscription to be established before returning so callers
	// never miss records published immediately after subscribing.
	if _, err := ps.Receive(context.Background()); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ch := ps.Channel()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range ch {
			handle(msg.Payload)
		}
	}()

	return func() { _ = ps.Close() }, nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pubsubs := r.pubsubs
	r.mu.Unlock()

	for _, ps := range pubsubs {
		_ = ps.Close()
	}
	r.wg.Wait()
	return r.client.Close()
}
