package command

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// SocketSource serves the protocol on a unix domain socket, one client at a
// time. A client disconnecting returns to accepting; quit ends the source.
type SocketSource struct {
	listener
	path string
}

// NewSocketSource returns a source that will listen on path.
func NewSocketSource(path string, synth contracts.Synth, options *contracts.Options) *SocketSource {
	s := &SocketSource{path: path}
	s.init(synth, options)
	return s
}

// Path returns the socket path.
func (s *SocketSource) Path() string { return s.path }

// Start binds the socket, replacing a stale socket file, and launches the
// accept loop. Bind failures are returned as contracts.ErrSocket. A source
// that was already started is left alone.
func (s *SocketSource) Start(onQuit func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errAlreadyStarted
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", contracts.ErrSocket, s.path, err)
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.path, Net: "unix"})
	if err != nil {
		s.logger.Error("Failed to bind socket", s.logger.Field().String("path", s.path), s.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", contracts.ErrSocket, err)
	}
	ln.SetUnlinkOnClose(true)

	s.startLocked(onQuit, func() error { return s.acceptLoop(ln) })
	s.logger.Info("Listening on socket", s.logger.Field().String("path", s.path))
	return nil
}

func (s *SocketSource) acceptLoop(ln *net.UnixListener) error {
	defer ln.Close()
	for !s.stopping() {
		if err := ln.SetDeadline(time.Now().Add(s.poll)); err != nil {
			return err
		}
		conn, err := ln.AcceptUnix()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return err
		}

		s.logger.Info("Client connected")
		lines := &connLines{conn: conn, br: bufio.NewReader(conn)}
		quit, err := s.serveLines(lines)
		lines.close()
		if err != nil {
			s.logger.Warn("Client read failed", s.logger.Field().Error("error", err))
		}
		s.logger.Info("Client disconnected")
		if quit {
			return nil
		}
	}
	return nil
}

// connLines reads lines from a connection using read deadlines as the poll
// timeout. A line split across timeouts is reassembled.
type connLines struct {
	conn    *net.UnixConn
	br      *bufio.Reader
	pending strings.Builder
}

func (c *connLines) next(timeout time.Duration) (string, bool, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", false, err
	}
	chunk, err := c.br.ReadString('\n')
	c.pending.WriteString(chunk)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return "", false, nil
		}
		if c.pending.Len() > 0 {
			// last line without newline; the error comes back on the next call
			return c.flush(), true, nil
		}
		return "", false, err
	}
	return c.flush(), true, nil
}

func (c *connLines) flush() string {
	line := trimLine(c.pending.String())
	c.pending.Reset()
	return line
}

func (c *connLines) close() error {
	return c.conn.Close()
}
