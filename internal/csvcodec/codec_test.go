package csvcodec

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// ============================================================================
// Decode
// ============================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  DecodeOptions
		want  [][]string
	}{
		{
			name:  "empty input",
			input: "",
			want:  [][]string{},
		},
		{
			name:  "plain cells",
			input: "a,b\r\nc,d\r\n",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "trailing row without terminator is flushed",
			input: "a,b\r\nc,d",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "quoted cells with separators and newlines",
			input: "\"a,1\",\"line\r\nbreak\"\r\n",
			want:  [][]string{{"a,1", "line\r\nbreak"}},
		},
		{
			name:  "escaped quote inside quoted cell",
			input: `"say ""hi""",x` + "\r\n",
			want:  [][]string{{`say "hi"`, "x"}},
		},
		{
			name:  "cell of only a doubled quote",
			input: `""""`,
			want:  [][]string{{`"`}},
		},
		{
			name:  "empty quoted cell at end of input",
			input: `a,""`,
			want:  [][]string{{"a", ""}},
		},
		{
			name:  "doubled quote in plain cell",
			input: `a""b,c`,
			want:  [][]string{{`a"b`, "c"}},
		},
		{
			name:  "empty cells",
			input: ",,x\r\n",
			want:  [][]string{{"", "", "x"}},
		},
		{
			name:  "blank line is an empty row",
			input: "a\r\n\r\nb\r\n",
			want:  [][]string{{"a"}, {}, {"b"}},
		},
		{
			name:  "unterminated quote absorbs the rest",
			input: "\"abc,def\r\nghi",
			want:  [][]string{{"abc,def\r\nghi"}},
		},
		{
			name:  "LF terminator",
			input: "a,b\nc,d\n",
			opts:  DecodeOptions{NoCR: true},
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "CRLF left in cells when NoCR",
			input: "a\r\nb",
			opts:  DecodeOptions{NoCR: true},
			want:  [][]string{{"a\r"}, {"b"}},
		},
		{
			name:  "TSV",
			input: "a\tb,c\r\n",
			opts:  DecodeOptions{TSV: true},
			want:  [][]string{{"a", "b,c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.input, tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

// ============================================================================
// Encode
// ============================================================================

func TestEncode(t *testing.T) {
	rows := []table.Row{
		{"a", 1, nil},
		{`q"`, true, "x\ny"},
	}
	fields := []string{"s", "n", "z"}

	tests := []struct {
		name string
		opts EncodeOptions
		want string
	}{
		{
			name: "defaults",
			want: "\"s\",\"n\",\"z\"\r\n" +
				"\"a\",\"1\",\"\"\r\n" +
				"\"q\"\"\",\"true\",\"x\ny\"\r\n",
		},
		{
			name: "skip fields and custom newline",
			opts: EncodeOptions{SkipFields: true, NewLine: "\n"},
			want: "\"a\",\"1\",\"\"\n" +
				"\"q\"\"\",\"true\",\"x\ny\"\n",
		},
		{
			name: "partial range",
			opts: EncodeOptions{StartRow: 1, StartCol: 1},
			want: "\"s\",\"n\",\"z\"\r\n" +
				"\"true\",\"x\ny\"\r\n",
		},
		{
			name: "remove new lines",
			opts: EncodeOptions{SkipFields: true, StartRow: 1, RemoveNewLines: true},
			want: "\"q\"\"\",\"true\",\"x y\"\r\n",
		},
		{
			name: "tsv",
			opts: EncodeOptions{SkipFields: true, StartRow: 1, TSV: true},
			want: "\"q\"\"\"\t\"true\"\t\"x\ny\"\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(rows, fields, tt.opts)
			if got != tt.want {
				t.Errorf("Encode() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestEncode_CollapsesQuoteRuns(t *testing.T) {
	got := Encode([]table.Row{{`a""b`}}, nil, EncodeOptions{SkipFields: true})
	if want := "\"a\"\"b\"\r\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

// ============================================================================
// Round Trip
// ============================================================================

func TestRoundTrip(t *testing.T) {
	cells := [][]string{
		{"plain", "with,comma", "with\ttab"},
		{`one " quote`, "line\r\nbreak", "lf\nonly"},
		{"", `"`, `ends with "`},
		{`"starts`, `",`, "trailing space "},
	}

	dialects := []struct {
		name   string
		decode DecodeOptions
		encode EncodeOptions
	}{
		{"csv crlf", DecodeOptions{}, EncodeOptions{}},
		{"csv lf", DecodeOptions{NoCR: true}, EncodeOptions{NewLine: "\n"}},
		{"tsv crlf", DecodeOptions{TSV: true}, EncodeOptions{TSV: true}},
		{"tsv lf", DecodeOptions{TSV: true, NoCR: true}, EncodeOptions{TSV: true, NewLine: "\n"}},
	}

	for _, d := range dialects {
		t.Run(d.name, func(t *testing.T) {
			tbl := table.FromStrings(cells, table.TableOptions{})
			d.encode.SkipFields = true

			got := Decode(EncodeTable(tbl, d.encode), d.decode)
			if diff := cmp.Diff(cells, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_WithHeader(t *testing.T) {
	tbl := table.New([]string{"id", "note"}, []table.Row{{"1", `a "b" c`}})

	got := Decode(EncodeTable(tbl, EncodeOptions{}), DecodeOptions{})
	back := table.FromStrings(got, table.TableOptions{HeadersInFirstRow: true})

	if diff := cmp.Diff(tbl, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkDecode(b *testing.B) {
	tbl := benchTable(1000)
	text := EncodeTable(tbl, EncodeOptions{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Decode(text, DecodeOptions{})
	}
}

func BenchmarkEncode(b *testing.B) {
	tbl := benchTable(1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeTable(tbl, EncodeOptions{})
	}
}

func benchTable(n int) *table.Table {
	rows := make([]table.Row, n)
	for i := range rows {
		rows[i] = table.Row{i, "name, with comma", `quote "here"`, 12.5, true}
	}
	return table.New([]string{"id", "name", "note", "amount", "active"}, rows)
}
