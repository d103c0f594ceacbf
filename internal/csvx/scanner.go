package csvx

import "strings"

// LineScanner walks a text line by line while reporting the [start, end)
// byte range of each line. End is exclusive and includes the terminator, so
// concatenating consecutive ranges reproduces the source bytes exactly,
// which is the property the window segmenter's offsets depend on.
type LineScanner struct {
	text string
	pos  int
}

func NewLineScanner(text string) *LineScanner {
	return &LineScanner{text: text}
}

// Next returns the next line without its terminator, plus its byte range.
// Handles both \n and \r\n. ok is false at end of input.
func (s *LineScanner) Next() (line string, start, end int, ok bool) {
	if s.pos >= len(s.text) {
		return "", s.pos, s.pos, false
	}
	start = s.pos
	idx := strings.IndexByte(s.text[s.pos:], '\n')
	if idx < 0 {
		end = len(s.text)
		line = s.text[start:end]
	} else {
		end = s.pos + idx + 1
		line = s.text[start : end-1]
	}
	line = strings.TrimSuffix(line, "\r")
	s.pos = end
	return line, start, end, true
}

// Offset reports the scanner's current byte position.
func (s *LineScanner) Offset() int { return s.pos }
