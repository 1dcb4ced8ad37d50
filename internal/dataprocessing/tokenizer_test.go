package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smechannel/pkg/contracts/domain"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  domain.RawGrid
	}{
		{
			name:  "simple rows",
			input: "a,b,c\n1,2,3\n",
			want:  domain.RawGrid{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:  "no trailing newline",
			input: "a,b\n1,2",
			want:  domain.RawGrid{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "crlf terminators",
			input: "a,b\r\n1,2\r\n",
			want:  domain.RawGrid{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "bare cr terminators",
			input: "a,b\r1,2\r",
			want:  domain.RawGrid{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "quoted delimiter and newline",
			input: "name,note\n\"Doe, Jane\",\"line1\nline2\"\n",
			want:  domain.RawGrid{{"name", "note"}, {"Doe, Jane", "line1\nline2"}},
		},
		{
			name:  "escaped quote",
			input: "a\n\"say \"\"hi\"\"\"\n",
			want:  domain.RawGrid{{"a"}, {`say "hi"`}},
		},
		{
			name:  "blank and whitespace rows dropped",
			input: "a,b\n\n , \n,\n1,2\n",
			want:  domain.RawGrid{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "ragged rows preserved",
			input: "a,b,c\n1\n1,2,3,4\n",
			want:  domain.RawGrid{{"a", "b", "c"}, {"1"}, {"1", "2", "3", "4"}},
		},
		{
			name:  "unterminated quote flushes remaining input",
			input: "a,b\n1,\"open field\n2,3",
			want:  domain.RawGrid{{"a", "b"}, {"1", "open field\n2,3"}},
		},
		{
			name:  "byte order mark stripped",
			input: "\ufeffUSGI NET PREMIUM,LOB\n100,MOTOR\n",
			want:  domain.RawGrid{{"USGI NET PREMIUM", "LOB"}, {"100", "MOTOR"}},
		},
		{
			name:  "empty cells kept inside non-blank row",
			input: "a,,c\n",
			want:  domain.RawGrid{{"a", "", "c"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "multibyte content",
			input: "premium\n\"₹12,345.50\"\n",
			want:  domain.RawGrid{{"premium"}, {"₹12,345.50"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCSV(tt.input))
		})
	}
}

func TestParseCSVReader(t *testing.T) {
	grid, err := ParseCSVReader(strings.NewReader("x,y\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.RawGrid{{"x", "y"}, {"1", "2"}}, grid)
}

func TestParseCSV_LargeInputTerminates(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 5000; i++ {
		b.WriteString("1,\"two\"\n")
	}
	b.WriteString("\"never closed")

	grid := ParseCSV(b.String())
	require.Len(t, grid, 5002)
	assert.Equal(t, []string{"never closed"}, grid[5001])
}
