// Package templates holds the HTML views. The .templ files are the source;
// regenerate the _templ.go files with `templ generate` after editing them.
package templates

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/table"
)

const (
	loadPath   = "/api/tables/{name}"
	timeLayout = "2006-01-02 15:04:05"
)

// TableViewData is what the table page shows.
type TableViewData struct {
	Info      core.TableInfo
	Statement string
	Fields    []string
	Rows      []table.Row
	Total     int // rows in the result before the display limit
	Err       *core.UserMessage
}

// Summary reports how many rows are shown.
func (d TableViewData) Summary() string {
	if len(d.Rows) < d.Total {
		return "Showing " + strconv.Itoa(len(d.Rows)) + " of " + strconv.Itoa(d.Total) + " rows"
	}
	return strconv.Itoa(d.Total) + " rows"
}

func tableURL(name string) templ.SafeURL {
	return templ.URL("/tables/" + url.PathEscape(name))
}
