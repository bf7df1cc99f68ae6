package console

import (
	"bufio"
	"fmt"
	"io"
)

const (
	// MaxLineLen caps an input line before parsing. Longer lines are
	// reported and discarded whole.
	MaxLineLen = 128

	lineQueueLen = 8
)

// LineReader assembles operator input lines with a hard length cap and
// queues them for the controller. It is created once per process and
// outlives engine restarts: each Controller incarnation drains the same
// queue, so input typed around a reboot is never swallowed by a dead
// controller.
type LineReader struct {
	out   io.Writer
	lines chan string
}

// NewLineReader starts the pump goroutine over in, reporting discarded
// lines to out. The goroutine exits when in returns an error.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	r := LineReader{
		out:   out,
		lines: make(chan string, lineQueueLen),
	}

	go r.pump(in)

	return &r
}

// Lines returns the queue of complete input lines.
func (r *LineReader) Lines() <-chan string { return r.lines }

// pump assembles input lines with a hard length cap, so a stream that
// never sends a newline cannot grow memory without bound.
func (r *LineReader) pump(in io.Reader) {
	br := bufio.NewReader(in)
	line := make([]byte, 0, MaxLineLen)
	tooLong := false

	for {
		chunk, isPrefix, err := br.ReadLine()
		if len(chunk) > 0 && !tooLong {
			if len(line)+len(chunk) > MaxLineLen {
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}

		if !isPrefix || err != nil {
			switch {
			case tooLong:
				fmt.Fprintf(r.out, "error: line too long (max %d)\n", MaxLineLen)
			case len(line) > 0:
				select {
				case r.lines <- string(line):
				default: // queue full, drop
				}
			}
			line = line[:0]
			tooLong = false
		}

		if err != nil {
			return
		}
	}
}
