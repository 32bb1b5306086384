package bridge

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	robot := strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := NewSession(robot)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dialOutput(t *testing.T, s *Session) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", OutputSocketPath(s.Robot()))
	if err != nil {
		t.Fatalf("dial output socket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialInput(t *testing.T, s *Session) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", InputSocketPath(s.Robot()))
	if err != nil {
		t.Fatalf("dial input socket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads from conn until want is contained in the accumulated data.
func readUntil(t *testing.T, conn net.Conn, want string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var got []byte
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		if strings.Contains(string(got), want) {
			return string(got)
		}
		if err != nil {
			var nerr net.Error
			if ok := errorsAs(err, &nerr); ok && nerr.Timeout() {
				continue
			}
			t.Fatalf("read output socket: %v (got %q)", err, got)
		}
	}
	t.Fatalf("timed out waiting for %q, got %q", want, got)
	return ""
}

func errorsAs(err error, target *net.Error) bool {
	if nerr, ok := err.(net.Error); ok {
		*target = nerr
		return true
	}
	return false
}

func TestRunFlushesBufferedOutputToLateConsole(t *testing.T) {
	s := testSession(t)

	result := make(chan int, 1)
	go func() {
		result <- s.Run(context.Background(), `printf 'one\ntwo\n'; sleep 0.5; printf 'three\n'`)
	}()

	// Let the first two lines land before any console attaches.
	time.Sleep(200 * time.Millisecond)
	conn := dialOutput(t, s)

	got := readUntil(t, conn, "three\n")
	iOne := strings.Index(got, "one\n")
	iTwo := strings.Index(got, "two\n")
	iThree := strings.Index(got, "three\n")
	if iOne < 0 || iTwo < iOne || iThree < iTwo {
		t.Fatalf("output out of order or dropped: %q", got)
	}

	if code := <-result; code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunReturnsProcessExitCode(t *testing.T) {
	s := testSession(t)

	if code := s.Run(context.Background(), "exit 3"); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
}

func TestRunForwardsOperatorInputToProcess(t *testing.T) {
	s := testSession(t)

	result := make(chan int, 1)
	go func() {
		result <- s.Run(context.Background(), `read line; echo "got:$line"`)
	}()

	out := dialOutput(t, s)
	in := dialInput(t, s)
	if _, err := in.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write input: %v", err)
	}

	readUntil(t, out, "got:hello\n")
	if code := <-result; code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestCancelDetachesWithoutKillingProcess(t *testing.T) {
	s := testSession(t)

	marker := filepath.Join(t.TempDir(), "alive")
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan int, 1)
	go func() {
		result <- s.Run(ctx, "sleep 1; echo alive > "+marker)
	}()

	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	cancel()

	select {
	case code := <-result:
		if code == 0 {
			t.Fatalf("cancelled run must not report success")
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Fatalf("forwarders took too long to stop: %v", elapsed)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	// The process must survive detachment and still write its marker.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("process was killed by cancellation")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestCancelReturnsDespiteStalledConsole(t *testing.T) {
	s := testSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan int, 1)
	go func() {
		result <- s.Run(ctx, `yes xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx | head -n 40000; sleep 5`)
	}()

	// A console that connects but never reads: once the socket buffer
	// fills, console writes stall and must not wedge the forwarder.
	_ = dialOutput(t, s)
	time.Sleep(500 * time.Millisecond)
	cancel()

	select {
	case code := <-result:
		if code == 0 {
			t.Fatalf("cancelled run must not report success")
		}
	case <-time.After(4 * time.Second):
		t.Fatal("run did not return after cancellation with a stalled console")
	}
}

func TestRunForwardsLinesLongerThanReadBuffer(t *testing.T) {
	s := testSession(t)

	result := make(chan int, 1)
	go func() {
		result <- s.Run(context.Background(), `head -c 1200000 /dev/zero | tr '\0' a; echo; echo done`)
	}()

	conn := dialOutput(t, s)
	got := readUntil(t, conn, "done\n")
	if !strings.Contains(got, strings.Repeat("a", 1000)) {
		t.Fatalf("long line dropped, got %d bytes", len(got))
	}
	if code := <-result; code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestSingleShotPromptAndAnswer(t *testing.T) {
	s := testSession(t)

	out := dialOutput(t, s)
	in := dialInput(t, s)

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.WriteOutputOnce(context.Background(), "repeat? (yes/no/skip): ")
	}()
	readUntil(t, out, "repeat? (yes/no/skip): ")
	if err := <-writeErr; err != nil {
		t.Fatalf("WriteOutputOnce: %v", err)
	}

	if _, err := in.Write([]byte("skip\n")); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	answer, err := s.ReadInputOnce(context.Background())
	if err != nil {
		t.Fatalf("ReadInputOnce: %v", err)
	}
	if strings.TrimSpace(answer) != "skip" {
		t.Fatalf("expected skip, got %q", answer)
	}
}

func TestReadInputOnceHonorsContext(t *testing.T) {
	s := testSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := s.ReadInputOnce(ctx); err == nil {
		t.Fatal("expected context error with no console attached")
	}
}

func TestRunLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := testSession(t)
	if code := s.Run(context.Background(), "echo done"); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	_ = s.Close()
}

func TestNewSessionRemovesStaleSocket(t *testing.T) {
	robot := strings.ToLower(t.Name())
	stale := InputSocketPath(robot)
	if err := os.WriteFile(stale, nil, 0o600); err != nil {
		t.Fatalf("plant stale socket file: %v", err)
	}

	s, err := NewSession(robot)
	if err != nil {
		t.Fatalf("NewSession with stale socket: %v", err)
	}
	_ = s.Close()
}
