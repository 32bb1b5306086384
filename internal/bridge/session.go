package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/survey-ops/surveyor/internal/log"
)

const (
	// chunkSize bounds a single socket write. Larger payloads are split.
	chunkSize = 1024

	// acceptTimeout bounds each accept attempt so the stop signal is
	// observed promptly.
	acceptTimeout = 50 * time.Millisecond

	// readTimeout bounds each read of operator input.
	readTimeout = 1 * time.Second

	// writeTimeout bounds each chunk written to the console. A console
	// that stops reading must never wedge the output forwarder.
	writeTimeout = 1 * time.Second

	// faultResult is returned when the process could not be started,
	// was killed due to an internal fault, or supervision was cancelled.
	faultResult = 1
)

// InputSocketPath returns the per-robot socket path a console writes
// operator input to.
func InputSocketPath(robot string) string {
	return filepath.Join(os.TempDir(), "input_"+robot)
}

// OutputSocketPath returns the per-robot socket path a console reads
// combined process output from.
func OutputSocketPath(robot string) string {
	return filepath.Join(os.TempDir(), "output_"+robot)
}

// Session owns the two endpoints for one robot. At most one session per
// robot can exist at a time: the socket paths are derived from the robot
// identity, so a second bind would collide.
type Session struct {
	robot string
	id    string

	inputPath  string
	outputPath string

	inputLn  *net.UnixListener
	outputLn *net.UnixListener

	mu              sync.Mutex
	inputConn       net.Conn
	outputConn      net.Conn
	inputConnected  atomic.Bool
	outputConnected atomic.Bool

	running atomic.Bool

	logger *slog.Logger
}

// NewSession binds the input and output endpoints for robot. Stale socket
// files left by a crashed prior session are removed before binding; a bind
// failure fails the session.
func NewSession(robot string) (*Session, error) {
	if robot == "" {
		return nil, fmt.Errorf("robot identity is empty")
	}

	s := &Session{
		robot:      robot,
		id:         uuid.NewString(),
		inputPath:  InputSocketPath(robot),
		outputPath: OutputSocketPath(robot),
		logger:     log.WithComponent("bridge").With("robot", robot),
	}

	for _, path := range []string{s.inputPath, s.outputPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
	}

	inputLn, err := net.Listen("unix", s.inputPath)
	if err != nil {
		return nil, fmt.Errorf("bind input socket: %w", err)
	}
	outputLn, err := net.Listen("unix", s.outputPath)
	if err != nil {
		_ = inputLn.Close()
		return nil, fmt.Errorf("bind output socket: %w", err)
	}

	s.inputLn = inputLn.(*net.UnixListener)
	s.outputLn = outputLn.(*net.UnixListener)

	s.logger.Debug("session endpoints bound",
		"session_id", s.id, "input", s.inputPath, "output", s.outputPath)
	return s, nil
}

// Robot returns the robot identity the session was bound for.
func (s *Session) Robot() string { return s.robot }

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// Close releases both endpoints, regardless of whether a supervised process
// is still running.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.inputConn != nil {
		_ = s.inputConn.Close()
		s.inputConn = nil
	}
	if s.outputConn != nil {
		_ = s.outputConn.Close()
		s.outputConn = nil
	}
	s.mu.Unlock()
	s.inputConnected.Store(false)
	s.outputConnected.Store(false)

	var errs []error
	if err := s.inputLn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.outputLn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// acceptOutput tries one bounded accept on the output endpoint and records
// the connection on success.
func (s *Session) acceptOutput() error {
	if err := s.outputLn.SetDeadline(time.Now().Add(acceptTimeout)); err != nil {
		return err
	}
	conn, err := s.outputLn.Accept()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.outputConn = conn
	s.mu.Unlock()
	s.outputConnected.Store(true)
	s.logger.Debug("console connected to output endpoint")
	return nil
}

// acceptInput tries one bounded accept on the input endpoint.
func (s *Session) acceptInput() error {
	if err := s.inputLn.SetDeadline(time.Now().Add(acceptTimeout)); err != nil {
		return err
	}
	conn, err := s.inputLn.Accept()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.inputConn = conn
	s.mu.Unlock()
	s.inputConnected.Store(true)
	s.logger.Debug("console connected to input endpoint")
	return nil
}

// writeOutput sends data to the connected console in bounded chunks.
// A write failure disconnects the endpoint; capture continues regardless.
func (s *Session) writeOutput(data []byte) error {
	s.mu.Lock()
	conn := s.outputConn
	s.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}

	encoded := toASCII(data)
	for i := 0; i < len(encoded); i += chunkSize {
		end := i + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			s.disconnectOutput()
			return err
		}
		if _, err := conn.Write(encoded[i:end]); err != nil {
			// A stalled console counts as disconnected; capture
			// continues without it.
			s.disconnectOutput()
			return err
		}
	}
	return nil
}

// readInput reads one bounded chunk of operator input. An empty result with
// nil error means the read timed out; io.EOF means the peer disconnected.
func (s *Session) readInput() (string, error) {
	s.mu.Lock()
	conn := s.inputConn
	s.mu.Unlock()
	if conn == nil {
		return "", net.ErrClosed
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return "", err
	}
	buf := make([]byte, chunkSize)
	n, err := conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return "", nil
		}
		return "", err
	}
	return string(toASCII(buf[:n])), nil
}

func (s *Session) disconnectOutput() {
	s.mu.Lock()
	if s.outputConn != nil {
		_ = s.outputConn.Close()
		s.outputConn = nil
	}
	s.mu.Unlock()
	s.outputConnected.Store(false)
	s.logger.Warn("console disconnected from output endpoint")
}

func (s *Session) disconnectInput() {
	s.mu.Lock()
	if s.inputConn != nil {
		_ = s.inputConn.Close()
		s.inputConn = nil
	}
	s.mu.Unlock()
	s.inputConnected.Store(false)
	s.logger.Warn("console disconnected from input endpoint")
}

// toASCII substitutes bytes outside printable ASCII so the console never
// receives unrepresentable data. Line breaks and tabs pass through.
func toASCII(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		switch {
		case b == '\n' || b == '\r' || b == '\t':
			out[i] = b
		case b < 0x20 || b > 0x7e:
			out[i] = '?'
		default:
			out[i] = b
		}
	}
	return out
}
