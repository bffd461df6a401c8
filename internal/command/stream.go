package command

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// StreamSource reads protocol lines from a character stream such as stdin.
// The loop ends on quit, end of input, a read error or Stop.
type StreamSource struct {
	listener
	reader io.Reader
}

// NewStreamSource returns a source reading from r.
func NewStreamSource(r io.Reader, synth contracts.Synth, options *contracts.Options) *StreamSource {
	s := &StreamSource{reader: r}
	s.init(synth, options)
	return s
}

// Start launches the listener loop. onQuit runs once when it exits.
func (s *StreamSource) Start(onQuit func()) error {
	return s.start(onQuit, func() error {
		lines := newStreamLines(s.reader)
		defer lines.close()
		quit, err := s.serveLines(lines)
		if quit {
			s.logger.Debug("Quit received")
		}
		return err
	})
}

type lineResult struct {
	line string
	err  error
}

// chanLines reads lines on a helper goroutine so that any io.Reader can be
// waited on with a timeout. The helper stays blocked in Read until the
// reader yields or fails.
type chanLines struct {
	lines chan lineResult
	quit  chan struct{}
}

func newChanLines(r io.Reader) *chanLines {
	c := &chanLines{lines: make(chan lineResult), quit: make(chan struct{})}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case c.lines <- lineResult{line: trimLine(scanner.Text())}:
			case <-c.quit:
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case c.lines <- lineResult{err: err}:
		case <-c.quit:
		}
	}()
	return c
}

func (c *chanLines) next(timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-c.lines:
		if res.err != nil {
			return "", false, res.err
		}
		return res.line, true, nil
	case <-timer.C:
		return "", false, nil
	}
}

func (c *chanLines) close() error {
	close(c.quit)
	return nil
}

func trimLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}
