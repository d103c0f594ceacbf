// Package segment turns a time-ordered sensor log into scene windows:
// contiguous byte ranges of the source file bounded by a maximum duration
// and split on silence gaps. Timestamps are first quantized into frame
// buckets so that jittered rows land in the same frame.
package segment

// Config holds the windowing knobs, all in milliseconds.
type Config struct {
	MaxWindowMs int64
	MaxGapMs    int64
	FrameBinMs  int64
}

// DefaultConfig matches the common roadside capture cadence: five minute
// windows, two minute silence cut, 10 Hz frames.
func DefaultConfig() Config {
	return Config{MaxWindowMs: 300_000, MaxGapMs: 120_000, FrameBinMs: 100}
}

func (c Config) normalized() Config {
	if c.MaxWindowMs <= 0 {
		c.MaxWindowMs = 300_000
	}
	if c.MaxGapMs <= 0 {
		c.MaxGapMs = 120_000
	}
	if c.FrameBinMs < 1 {
		c.FrameBinMs = 1
	}
	return c
}

// Bucket quantizes a millisecond timestamp to the start of its frame bin.
// Floors toward negative infinity so pre-epoch timestamps bucket correctly.
func Bucket(tsMs, binMs int64) int64 {
	if binMs < 1 {
		binMs = 1
	}
	q := tsMs / binMs
	if tsMs%binMs != 0 && tsMs < 0 {
		q--
	}
	return q * binMs
}

// Window is one scene-sized slice of a sensor log. Offsets are byte
// positions into the file text; OffsetEnd is exclusive and runs up to the
// start of the next window (or end of file), so rows of other sensors
// interleaved in a shared file stay inside the range and are filtered out
// again at read time.
type Window struct {
	Index       int
	FirstTS     int64
	LastTS      int64
	OffsetStart int64
	OffsetEnd   int64
	Rows        int
	Frames      int
}

// DurationMs reports the bucketed span of the window.
func (w Window) DurationMs() int64 { return w.LastTS - w.FirstTS }

// Segmenter is the single-pass windowing state machine. Push rows in file
// order, then Flush with the file length.
type Segmenter struct {
	cfg     Config
	windows []Window
	cur     Window
	open    bool
}

// NewSegmenter returns a segmenter with cfg normalized to sane bounds.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg.normalized()}
}

// Push feeds one row. start/end is the row's byte range, end exclusive and
// including the line terminator.
func (s *Segmenter) Push(tsMs, start, end int64) {
	f := Bucket(tsMs, s.cfg.FrameBinMs)
	if !s.open {
		s.cur = Window{FirstTS: f, LastTS: f, OffsetStart: start, Rows: 1, Frames: 1}
		s.open = true
		return
	}
	if f == s.cur.LastTS {
		s.cur.Rows++
		return
	}
	gap := f - s.cur.LastTS
	dur := f - s.cur.FirstTS
	if gap > s.cfg.MaxGapMs || dur >= s.cfg.MaxWindowMs {
		s.close(start)
		s.cur = Window{FirstTS: f, LastTS: f, OffsetStart: start, Rows: 1, Frames: 1}
		s.open = true
		return
	}
	s.cur.LastTS = f
	s.cur.Frames++
	s.cur.Rows++
}

func (s *Segmenter) close(nextStart int64) {
	s.cur.Index = len(s.windows)
	s.cur.OffsetEnd = nextStart
	s.windows = append(s.windows, s.cur)
	s.open = false
}

// Flush closes any open window at the end-of-file offset and returns all
// windows in file order. The segmenter must not be pushed to afterwards.
func (s *Segmenter) Flush(eof int64) []Window {
	if s.open {
		s.close(eof)
	}
	return s.windows
}
