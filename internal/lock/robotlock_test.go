package lock

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	robot := "testlock-" + strconv.Itoa(os.Getpid())
	l, err := Acquire(robot)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release(); _ = os.Remove(l.Path()) })

	b, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.TrimSpace(string(b)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("lock file holds %q, want own pid", b)
	}
}

func TestAcquireRejectsEmptyRobot(t *testing.T) {
	if _, err := Acquire(""); err == nil {
		t.Fatal("expected error for empty robot")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	robot := "testlock-release-" + strconv.Itoa(os.Getpid())
	l, err := Acquire(robot)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(l.Path()) })

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
