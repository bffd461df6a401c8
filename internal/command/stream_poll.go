//go:build linux || darwin || freebsd || netbsd || openbsd

package command

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// pollLines waits for input on a non-blocking file descriptor with poll(2)
// and reads only what is available, so a partial line never holds the loop
// past one poll interval.
type pollLines struct {
	file    *os.File // keeps the descriptor owner reachable
	fd      int
	buf     []byte
	pending []byte
	eof     bool
}

func newStreamLines(r io.Reader) lineReader {
	if f, ok := r.(*os.File); ok {
		fd := int(f.Fd())
		if err := unix.SetNonblock(fd, true); err == nil {
			return &pollLines{file: f, fd: fd, buf: make([]byte, 4096)}
		}
	}
	return newChanLines(r)
}

func (p *pollLines) next(timeout time.Duration) (string, bool, error) {
	if line, ok := p.take(); ok {
		return line, true, nil
	}
	if p.eof {
		return "", false, io.EOF
	}

	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return "", false, nil
		}
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}

	n, err = unix.Read(p.fd, p.buf)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return "", false, nil
	case err != nil:
		return "", false, err
	case n == 0:
		p.eof = true
	default:
		p.pending = append(p.pending, p.buf[:n]...)
	}

	if line, ok := p.take(); ok {
		return line, true, nil
	}
	if p.eof {
		return "", false, io.EOF
	}
	return "", false, nil
}

// take pops the next complete line, or the unterminated remainder once the
// input has ended.
func (p *pollLines) take() (string, bool) {
	if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
		line := trimLine(string(p.pending[:i+1]))
		p.pending = p.pending[i+1:]
		return line, true
	}
	if p.eof && len(p.pending) > 0 {
		line := trimLine(string(p.pending))
		p.pending = nil
		return line, true
	}
	return "", false
}

// close puts the descriptor back in blocking mode; Fd left it that way.
func (p *pollLines) close() error {
	return unix.SetNonblock(p.fd, false)
}
