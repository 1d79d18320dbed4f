package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/query"
	"github.com/JonMunkholm/datamaster/internal/web/templates"
)

const defaultViewRows = 500

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.IndexPage(s.service.List()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render index failed", "error", err)
	}
}

// handleTableView renders a table, or the result of the SELECT in ?q.
// The page only reads; other statements are refused. ?limit caps the rows
// shown (default 500).
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stmt := strings.TrimSpace(r.URL.Query().Get("q"))

	t, info, err := s.service.Snapshot(name)
	if err != nil {
		respondErrorPage(w, r, err)
		return
	}

	data := templates.TableViewData{Info: info, Statement: stmt}
	switch {
	case stmt == "":
		data.Fields, data.Rows = t.Fields, t.Rows
	case !isSelect(stmt):
		msg := core.MapError(fmt.Errorf("%w: only SELECT runs from this page", query.ErrUnsupported))
		data.Err = &msg
	default:
		res, err := s.service.Query(r.Context(), name, stmt)
		if err != nil {
			msg := core.MapError(err)
			data.Err = &msg
			break
		}
		data.Fields, data.Rows = res.Table.Fields, res.Table.Rows
	}

	data.Total = len(data.Rows)
	if limit := parseIntParam(r, "limit", defaultViewRows); limit >= 0 && len(data.Rows) > limit {
		data.Rows = data.Rows[:limit]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.TableView(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render table failed", "table", name, "error", err)
	}
}

func isSelect(stmt string) bool {
	words := strings.Fields(stmt)
	return len(words) > 0 && strings.EqualFold(words[0], "SELECT")
}
