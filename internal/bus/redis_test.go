package bus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := NewRedis(RedisConfig{Addr: mr.Addr()}, "bumble", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestRedisCommandRoundTrip(t *testing.T) {
	got := make(chan Command, 1)
	b := newTestRedis(t)

	unsub, err := b.SubscribeCommands(func(cmd Command) { got <- cmd })
	require.NoError(t, err)
	defer unsub()

	want := Command{
		Name:          "startRecording",
		Args:          []string{"pano_usl_bay1_run1"},
		CorrelationID: "surveyor1700000000",
		Source:        "surveyor",
		Origin:        "surveyor",
	}
	require.NoError(t, b.Publish(context.Background(), want))

	select {
	case cmd := <-got:
		require.Equal(t, want, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
	}
}

func TestRedisAckRoundTrip(t *testing.T) {
	got := make(chan Ack, 1)
	b := newTestRedis(t)

	unsub, err := b.SubscribeAcks(func(a Ack) { got <- a })
	require.NoError(t, err)
	defer unsub()

	want := Ack{CorrelationID: "surveyor1700000000", Status: AckOK, Message: "completed"}
	require.NoError(t, b.InjectAck(context.Background(), want))

	select {
	case ack := <-got:
		require.Equal(t, want, ack)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

func TestRedisPlanStatusRoundTrip(t *testing.T) {
	got := make(chan PlanStatus, 1)
	b := newTestRedis(t)

	unsub, err := b.SubscribePlanStatus(func(ps PlanStatus) { got <- ps })
	require.NoError(t, err)
	defer unsub()

	want := PlanStatus{Plan: "stereo_survey", Step: 4, Status: StepCompleted}
	require.NoError(t, b.InjectPlanStatus(context.Background(), want))

	select {
	case ps := <-got:
		require.Equal(t, want, ps)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for plan status")
	}
}

func TestRedisPublishAfterCloseFails(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := NewRedis(RedisConfig{Addr: mr.Addr()}, "bumble", logger)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	err = b.Publish(context.Background(), Command{Name: "dock", CorrelationID: "c1"})
	require.Error(t, err)
}
