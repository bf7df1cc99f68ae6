package sensors

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
)

const (
	// MaxBytesPerPoll caps how many stream bytes a single Poll may consume,
	// so the control loop never stalls on a chatty or silent stream.
	MaxBytesPerPoll = 256

	// MaxSentenceLen caps the line assembly buffer. NMEA sentences are at
	// most 82 bytes; anything longer is garbage and is discarded up to the
	// next line terminator.
	MaxSentenceLen = 120

	// FixTimeout is how long a fix stays valid without a fresh valid update.
	FixTimeout = 30 * time.Second

	knotsToMetersPerSecond = 0.514444
)

// ByteSource is a non-blocking byte stream. ReadAvailable copies up to
// len(p) buffered bytes into p and returns immediately; n == 0 means no
// data is pending right now.
type ByteSource interface {
	ReadAvailable(p []byte) (n int, err error)
}

// Fix is the last decoded position. Valid is false until the first accepted
// fix and decays FixTimeout after the last one; the coordinate fields keep
// their last accepted values so consumers can report a stale position.
type Fix struct {
	Latitude   float64
	Longitude  float64
	Altitude   float32
	Speed      float32 // meters per second
	Satellites int
	Valid      bool
	UpdatedAt  time.Time
}

// WithPositionLogger sets the logger for the position reader.
func WithPositionLogger(logger *slog.Logger) func(*PositionReader) {
	return func(r *PositionReader) {
		r.logger = logger.With(slog.String("sensor", "gps"))
	}
}

// PositionReader incrementally decodes position sentences from a byte
// stream. It never blocks the caller: each Poll consumes at most
// MaxBytesPerPoll bytes and parses whatever complete sentences arrived.
type PositionReader struct {
	source ByteSource
	logger *slog.Logger

	line     []byte
	overflow bool

	fix Fix
}

// NewPositionReader creates a reader over the given source with a discard
// logger.
func NewPositionReader(source ByteSource, options ...func(*PositionReader)) *PositionReader {
	r := PositionReader{
		source: source,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		line:   make([]byte, 0, MaxSentenceLen),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Poll consumes pending stream bytes and updates the fix. It also expires
// a fix that has not been refreshed within FixTimeout, regardless of
// whether the stream keeps producing malformed data.
func (r *PositionReader) Poll(now time.Time) {
	var buf [MaxBytesPerPoll]byte

	n, err := r.source.ReadAvailable(buf[:])
	if err != nil && err != io.EOF {
		r.logger.Warn(fmt.Sprintf("error reading position stream: %s", err))
	}

	for _, b := range buf[:n] {
		r.feed(b, now)
	}

	if r.fix.Valid && now.Sub(r.fix.UpdatedAt) > FixTimeout {
		r.fix.Valid = false
		r.logger.Warn("position fix expired", slog.Time("lastUpdate", r.fix.UpdatedAt))
	}
}

// Fix returns the last decoded position.
func (r *PositionReader) Fix() Fix {
	return r.fix
}

func (r *PositionReader) feed(b byte, now time.Time) {
	switch b {
	case '\r':
		return
	case '\n':
		line := string(r.line)
		r.line = r.line[:0]
		if r.overflow {
			r.overflow = false
			return
		}
		if line != "" {
			r.parseSentence(line, now)
		}
	default:
		if r.overflow {
			return
		}
		if len(r.line) >= MaxSentenceLen {
			// Discard the rest of this line.
			r.overflow = true
			r.line = r.line[:0]
			return
		}
		r.line = append(r.line, b)
	}
}

func (r *PositionReader) parseSentence(line string, now time.Time) {
	s, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		r.logger.Debug(fmt.Sprintf("error parsing sentence: %s", err))
		return
	}

	switch m := s.(type) {
	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return
		}
		if !validCoordinates(m.Latitude, m.Longitude) {
			r.logger.Warn("rejecting out-of-range coordinates",
				slog.Float64("lat", m.Latitude), slog.Float64("lon", m.Longitude))
			return
		}
		r.fix.Latitude = m.Latitude
		r.fix.Longitude = m.Longitude
		r.fix.Speed = float32(m.Speed * knotsToMetersPerSecond)
		r.fix.Valid = true
		r.fix.UpdatedAt = now

	case nmea.GGA:
		if m.FixQuality == nmea.Invalid {
			return
		}
		if !validCoordinates(m.Latitude, m.Longitude) {
			return
		}
		r.fix.Latitude = m.Latitude
		r.fix.Longitude = m.Longitude
		r.fix.Altitude = float32(m.Altitude)
		r.fix.Satellites = int(m.NumSatellites)
		r.fix.Valid = true
		r.fix.UpdatedAt = now
	}
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
