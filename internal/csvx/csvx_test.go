package csvx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		pref   byte
		want   byte
	}{
		{"commas win", "a,b,c;d", ',', ','},
		{"semicolons win", "a;b;c,d", ',', ';'},
		{"tabs win", "a\tb\tc", ',', '\t'},
		{"tie goes to preference", "a,b;c", ';', ';'},
		{"empty header keeps preference", "", '\t', '\t'},
		{"zero preference falls back to comma", "a|b|c", 0, ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter(tt.header, tt.pref))
		})
	}
}

func TestSplitLine(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitLine("a,b,c", ','))
	assert.Equal(t, []string{"a", "b,c", "d"}, SplitLine(`a,"b,c",d`, ','))
	assert.Equal(t, []string{`say "hi"`, "x"}, SplitLine(`"say ""hi""",x`, ','))
	assert.Equal(t, []string{""}, SplitLine("", ','))
	// Malformed quoting degrades instead of failing.
	assert.Equal(t, []string{"ab,c"}, SplitLine(`a"b,c`, ','))
}

func TestParseTable(t *testing.T) {
	text := "\ufeffts, x ,y\n1,2.5,3\n\n2,4,\n"
	tbl := ParseTable(text, ',')
	require.Equal(t, []string{"ts", "x", "y"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "2.5", tbl.Rows[0]["x"])
	assert.Equal(t, "", tbl.Rows[1]["y"])
}

func TestParseTableEmptyInput(t *testing.T) {
	assert.Empty(t, ParseTable("", ',').Rows)
	assert.Empty(t, ParseTable("\n\n  \n", ',').Rows)
}

func TestParseTableSkipsLeadingBlankLines(t *testing.T) {
	tbl := ParseTable("\n\nid;v\n7;8\n", ',')
	require.Equal(t, byte(';'), tbl.Delimiter)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "7", tbl.Rows[0]["id"])
}

func TestLineScannerOffsets(t *testing.T) {
	text := "aa\nbb\r\ncc"
	sc := NewLineScanner(text)

	line, start, end, ok := sc.Next()
	require.True(t, ok)
	assert.Equal(t, "aa", line)
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, end)

	line, start, end, ok = sc.Next()
	require.True(t, ok)
	assert.Equal(t, "bb", line)
	assert.Equal(t, "bb\r\n", text[start:end])

	line, _, end, ok = sc.Next()
	require.True(t, ok)
	assert.Equal(t, "cc", line)
	assert.Equal(t, len(text), end)

	_, _, _, ok = sc.Next()
	assert.False(t, ok)
}

func TestLineScannerRangesCoverSource(t *testing.T) {
	text := "h\nr1\nr2\n"
	sc := NewLineScanner(text)
	covered := 0
	for {
		_, start, end, ok := sc.Next()
		if !ok {
			break
		}
		assert.Equal(t, covered, start)
		covered = end
		assert.Equal(t, end, sc.Offset())
	}
	assert.Equal(t, len(text), covered)
	assert.Equal(t, len(text), sc.Offset())
}
