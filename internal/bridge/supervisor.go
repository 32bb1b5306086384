package bridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
)

// Run launches command under supervision and blocks until the process has
// exited and its output has been fully forwarded, or until ctx is cancelled.
//
// Returns the process exit code (0 = success). A launch failure or an
// internal fault during the wait kills the process and returns a non-zero
// sentinel. Cancellation stops both forwarding tasks cooperatively and
// detaches from the process without killing it.
func (s *Session) Run(ctx context.Context, command string) int {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Error("refusing concurrent run on one session", "command", command)
		return faultResult
	}
	defer s.running.Store(false)

	s.logger.Info("launching supervised process", "command", command)

	cmd := exec.Command("/bin/sh", "-c", command)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.logger.Error("create stdin pipe", "error", err)
		return faultResult
	}

	// Stdout and stderr are combined so the console sees everything the
	// process prints, interleaved as it happened.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		s.logger.Error("start process", "error", err)
		return faultResult
	}

	lines := make(chan string, 64)
	go func() {
		// ReadString keeps lines of any length intact; a scanner's
		// token cap would silently end forwarding on a long line.
		reader := bufio.NewReaderSize(pr, chunkSize)
		for {
			line, rerr := reader.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if rerr != nil {
				if !errors.Is(rerr, io.EOF) {
					s.logger.Warn("read process output", "error", rerr)
				}
				close(lines)
				return
			}
		}
	}()

	stop := make(chan struct{})
	outputDone := make(chan struct{})
	inputDone := make(chan struct{})
	go s.forwardOutput(stop, lines, outputDone)
	go s.forwardInput(stop, stdin, inputDone)

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		// Unblocks the scanner; the output forwarder then drains and exits.
		_ = pw.Close()
		waitErr <- err
	}()

	select {
	case err := <-waitErr:
		<-outputDone
		close(stop)
		<-inputDone
		return exitCode(s, cmd, err)

	case <-ctx.Done():
		// Detach supervision: stop the forwarders and join them. The
		// process is deliberately left running.
		s.logger.Warn("supervision cancelled, detaching from process")
		close(stop)
		<-outputDone
		<-inputDone
		// Keep draining so the detached process never blocks on a full
		// output pipe.
		go func() {
			for range lines {
			}
			<-waitErr
		}()
		return faultResult
	}
}

func exitCode(s *Session, cmd *exec.Cmd, err error) int {
	if err == nil {
		s.logger.Info("process exited", "exit_code", 0)
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		s.logger.Warn("process exited non-zero", "exit_code", code)
		return code
	}
	// Internal fault while waiting: make sure the process is gone.
	s.logger.Error("internal fault during wait, killing process", "error", err)
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	return faultResult
}

// forwardOutput captures every line the process produces and delivers it to
// the output endpoint. Output seen before a console connects is buffered and
// flushed in order on the first connection; a broken connection downgrades to
// capture-only until the next connect.
func (s *Session) forwardOutput(stop <-chan struct{}, lines <-chan string, done chan<- struct{}) {
	defer close(done)

	var backlog []byte
	for {
		select {
		case <-stop:
			return

		case line, ok := <-lines:
			if !ok {
				return
			}
			s.logger.Info("process output", "line", strings.TrimRight(line, "\n"))
			backlog = append(backlog, line...)
			if s.outputConnected.Load() {
				if err := s.writeOutput([]byte(line)); err != nil {
					s.logger.Warn("output forward failed, capturing only", "error", err)
				}
			}

		default:
			if s.outputConnected.Load() {
				// Connected and no pending line: block on the next
				// line or the stop signal.
				select {
				case <-stop:
					return
				case line, ok := <-lines:
					if !ok {
						return
					}
					s.logger.Info("process output", "line", strings.TrimRight(line, "\n"))
					backlog = append(backlog, line...)
					if err := s.writeOutput([]byte(line)); err != nil {
						s.logger.Warn("output forward failed, capturing only", "error", err)
					}
				}
				continue
			}
			// Not connected: attempt one bounded accept, then flush
			// everything captured so far.
			if err := s.acceptOutput(); err != nil {
				continue
			}
			if err := s.writeOutput(backlog); err != nil {
				s.logger.Warn("backlog flush failed", "error", err)
			}
		}
	}
}

// forwardInput accepts one console connection and relays operator lines into
// the process standard input. An empty read means the peer hung up, which
// ends the task.
func (s *Session) forwardInput(stop <-chan struct{}, stdin io.WriteCloser, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = stdin.Close() }()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if !s.inputConnected.Load() {
			if err := s.acceptInput(); err != nil {
				continue
			}
		}

		request, err := s.readInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.disconnectInput()
			continue
		}
		if request == "" {
			// Bounded read timed out; check stop and retry.
			continue
		}

		line := strings.TrimRight(request, "\r\n")
		s.logger.Info("operator input", "line", line)
		if _, err := io.WriteString(stdin, line+"\n"); err != nil {
			s.logger.Warn("write to process stdin failed", "error", err)
			return
		}
	}
}

// WriteOutputOnce delivers one message to the output endpoint, waiting with
// bounded accept retries until a console connects or ctx is cancelled. Used
// for retry prompts outside an active Run.
func (s *Session) WriteOutputOnce(ctx context.Context, text string) error {
	for !s.outputConnected.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.acceptOutput(); err != nil {
			continue
		}
	}
	if err := s.writeOutput([]byte(text)); err != nil {
		return err
	}
	return nil
}

// ReadInputOnce reads one message from the input endpoint, waiting with
// bounded accept and read retries until a console supplies a line or ctx is
// cancelled.
func (s *Session) ReadInputOnce(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if !s.inputConnected.Load() {
			if err := s.acceptInput(); err != nil {
				continue
			}
		}

		request, err := s.readInput()
		if err != nil {
			s.disconnectInput()
			continue
		}
		if request == "" {
			continue
		}
		return request, nil
	}
}
