package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleCSV = "id,name,city\n1,Anna,Oslo\n2,Bob,Bergen\n3,Carl,Oslo\n"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ============================================================================
// query
// ============================================================================

func TestQuery(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name:  "select with order",
			stdin: peopleCSV,
			args:  []string{"query", "-e", "SELECT name WHERE city='oslo' ORDER BY name DESC"},
			want:  "\"name\"\n\"Carl\"\n\"Anna\"\n",
		},
		{
			name:  "update prints whole table",
			stdin: peopleCSV,
			args:  []string{"query", "-e", "UPDATE SET city='Bodø' WHERE id='2'", "--out", "tsv"},
			want:  "\"id\"\t\"name\"\t\"city\"\n\"1\"\t\"Anna\"\t\"Oslo\"\n\"2\"\t\"Bob\"\t\"Bodø\"\n\"3\"\t\"Carl\"\t\"Oslo\"\n",
		},
		{
			name:  "crlf input detected",
			stdin: "a,b\r\n1,2\r\n",
			args:  []string{"query", "-e", "SELECT b", "--crlf"},
			want:  "\"b\"\r\n\"2\"\r\n",
		},
		{
			name:  "no headers",
			stdin: "x,y\n",
			args:  []string{"query", "-e", "SELECT 1", "--no-headers"},
			want:  "\"1\"\n\"y\"\n",
		},
		{
			name:  "insert",
			stdin: "a\n1\n",
			args:  []string{"query", "-e", "INSERT VALUES ('2')"},
			want:  "\"a\"\n\"1\"\n\"2\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_JSONOutput(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	got, err := run(t, "", "query", path, "-e", "SELECT * WHERE id='1'", "--out", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","name":"Anna","city":"Oslo"}]`, got)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing statement", []string{"query"}, "statement is required"},
		{"delete without where", []string{"query", "-e", "DELETE"}, "WHERE"},
		{"unsupported", []string{"query", "-e", "DROP TABLE x"}, "unsupported statement"},
		{"missing file", []string{"query", "/no/such/file.csv", "-e", "SELECT *"}, "no such file"},
		{"bad output", []string{"query", "-e", "SELECT *", "--out", "xml"}, "unknown output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, peopleCSV, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// ============================================================================
// filter
// ============================================================================

func TestFilter(t *testing.T) {
	got, err := run(t, peopleCSV, "filter", "-w", "city='Oslo' OR name='B%'")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", got)

	got, err = run(t, peopleCSV, "filter", "-w", "id='$gte(2)'", "--rows")
	require.NoError(t, err)
	assert.Equal(t, "\"id\",\"name\",\"city\"\n\"2\",\"Bob\",\"Bergen\"\n\"3\",\"Carl\",\"Oslo\"\n", got)

	_, err = run(t, peopleCSV, "filter", "-w", "(city='Oslo'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter syntax error")
}

// ============================================================================
// convert
// ============================================================================

func TestConvert(t *testing.T) {
	tsv := writeFile(t, "people.tsv", "id\tnote\n1\t\"a, b\"\n")

	got, err := run(t, "", "convert", tsv, "--to", "csv")
	require.NoError(t, err)
	assert.Equal(t, "\"id\",\"note\"\n\"1\",\"a, b\"\n", got)

	jsonFile := writeFile(t, "rows.json", `[{"b":2,"a":"x"}]`)
	got, err = run(t, "", "convert", jsonFile, "--to", "tsv")
	require.NoError(t, err)
	assert.Equal(t, "\"a\"\t\"b\"\n\"x\"\t\"2\"\n", got)

	_, err = run(t, "not json", "convert", "--from", "json")
	require.Error(t, err)
}

// ============================================================================
// table utilities
// ============================================================================

const salesCSV = "name,qty,price\nA,1,2.5\nB,3,4\n"

func TestTableUtilities(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name:  "sum columns with label",
			stdin: salesCSV,
			args:  []string{"sum", "--label", "Total"},
			want:  "\"name\",\"qty\",\"price\"\n\"A\",\"1\",\"2.5\"\n\"B\",\"3\",\"4\"\n\"Total\",\"4\",\"6.5\"\n",
		},
		{
			name:  "sum by row",
			stdin: salesCSV,
			args:  []string{"sum", "--by-row", "--label", "RowTotal"},
			want:  "\"name\",\"qty\",\"price\",\"RowTotal\"\n\"A\",\"1\",\"2.5\",\"3.5\"\n\"B\",\"3\",\"4\",\"7\"\n",
		},
		{
			name:  "pivot",
			stdin: peopleCSV,
			args:  []string{"pivot"},
			want:  "\"id\",\"1\",\"2\",\"3\"\n\"name\",\"Anna\",\"Bob\",\"Carl\"\n\"city\",\"Oslo\",\"Bergen\",\"Oslo\"\n",
		},
		{
			name:  "dedupe by column",
			stdin: peopleCSV,
			args:  []string{"dedupe", "--cols", "city"},
			want:  "\"id\",\"name\",\"city\"\n\"1\",\"Anna\",\"Oslo\"\n\"2\",\"Bob\",\"Bergen\"\n",
		},
		{
			name:  "replace in one column",
			stdin: peopleCSV,
			args:  []string{"replace", "-p", "^anna$", "-r", "Ann", "--cols", "name"},
			want:  "\"id\",\"name\",\"city\"\n\"1\",\"Ann\",\"Oslo\"\n\"2\",\"Bob\",\"Bergen\"\n\"3\",\"Carl\",\"Oslo\"\n",
		},
		{
			name:  "search indices",
			stdin: peopleCSV,
			args:  []string{"search", "OSLO"},
			want:  "0\n2\n",
		},
		{
			name:  "search rows in a column",
			stdin: peopleCSV,
			args:  []string{"search", "b", "--cols", "name", "--rows"},
			want:  "\"id\",\"name\",\"city\"\n\"2\",\"Bob\",\"Bergen\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableUtilities_Errors(t *testing.T) {
	_, err := run(t, peopleCSV, "replace", "-r", "x")
	require.Error(t, err)

	_, err = run(t, peopleCSV, "replace", "-p", "(", "-r", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace pattern")

	_, err = run(t, peopleCSV, "search")
	require.Error(t, err)
}
