package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/table"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

// ============================================================================
// Pages
// ============================================================================

func TestIndexPage(t *testing.T) {
	html := render(t, IndexPage(nil))
	assert.Contains(t, html, "No tables loaded. POST CSV to /api/tables/{name}.")
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))

	html = render(t, IndexPage([]core.TableInfo{{
		Name:      "q1 sales",
		Fields:    []string{"a", "b"},
		Rows:      7,
		Source:    core.ActionLoad,
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}))
	assert.Contains(t, html, `<a href="/tables/q1%20sales">q1 sales</a>`)
	assert.Contains(t, html, "<td>2</td><td>7</td>")
	assert.Contains(t, html, "2024-05-01 12:00:00")
}

func TestTableView(t *testing.T) {
	d := TableViewData{
		Info:      core.TableInfo{Name: "people"},
		Statement: `SELECT * WHERE name="x"`,
		Fields:    []string{"name", "note"},
		Rows:      []table.Row{{"<b>Ann</b>", nil}},
		Total:     3,
	}

	html := render(t, TableView(d))
	assert.Contains(t, html, "<title>people</title>")
	assert.Contains(t, html, `value="SELECT * WHERE name=&#34;x&#34;"`)
	assert.Contains(t, html, "<th>name</th><th>note</th>")
	assert.Contains(t, html, "<td>&lt;b&gt;Ann&lt;/b&gt;</td>")
	assert.Contains(t, html, `<td class="null">null</td>`)
	assert.Contains(t, html, "Showing 1 of 3 rows")
	assert.NotContains(t, html, "<b>Ann")
}

func TestTableView_Error(t *testing.T) {
	msg := core.MapError(core.ErrTableNotFound)
	html := render(t, TableView(TableViewData{Info: core.TableInfo{Name: "x"}, Err: &msg}))

	assert.Contains(t, html, `<div class="error">`)
	assert.Contains(t, html, "TBL001")
	assert.NotContains(t, html, "<thead>")
}

func TestErrorPage(t *testing.T) {
	msg := core.MapError(core.ErrTableNotFound)

	html := render(t, ErrorPage(msg, "req-42"))
	assert.Contains(t, html, "<title>Error</title>")
	assert.Contains(t, html, "TBL001")
	assert.Contains(t, html, "Request req-42")

	html = render(t, ErrorPage(msg, ""))
	assert.NotContains(t, html, "Request ")
}

func TestSummary(t *testing.T) {
	tests := []struct {
		rows  int
		total int
		want  string
	}{
		{0, 0, "0 rows"},
		{2, 2, "2 rows"},
		{1, 5, "Showing 1 of 5 rows"},
	}

	for _, tt := range tests {
		d := TableViewData{Rows: make([]table.Row, tt.rows), Total: tt.total}
		assert.Equal(t, tt.want, d.Summary())
	}
}
