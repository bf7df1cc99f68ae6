package sensors

import (
	"io"
)

// StreamSource adapts a blocking io.Reader (a serial port, a file, a pipe)
// into a ByteSource. A pump goroutine performs the blocking reads and
// buffers bytes in a bounded channel; ReadAvailable only ever drains that
// channel. When the buffer is full the newest bytes are dropped, which for
// a sentence stream costs at most the lines currently in flight.
type StreamSource struct {
	buf chan byte
}

// NewStreamSource starts the pump goroutine over r. The goroutine exits
// when r returns any error.
func NewStreamSource(r io.Reader) *StreamSource {
	s := StreamSource{buf: make(chan byte, 4096)}

	go func() {
		chunk := make([]byte, 512)
		for {
			n, err := r.Read(chunk)
			for _, b := range chunk[:n] {
				select {
				case s.buf <- b:
				default: // buffer full, drop
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return &s
}

func (s *StreamSource) ReadAvailable(p []byte) (int, error) {
	for n := 0; n < len(p); n++ {
		select {
		case b := <-s.buf:
			p[n] = b
		default:
			return n, nil
		}
	}
	return len(p), nil
}
