package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// History actions.
const (
	ActionLoad    = "load"
	ActionReplace = "replace"
	ActionImport  = "import"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionInsert  = "insert"
	ActionUndo    = "undo"
)

// HistoryEntry records one change to a table.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	Time      time.Time `json:"time"`
	Action    string    `json:"action"`
	Statement string    `json:"statement,omitempty"`
	Affected  int       `json:"affected"`
	Rows      int       `json:"rows"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`

	// Undoable reports whether the table as it was before this change is
	// still held.
	Undoable bool `json:"undoable"`

	before *table.Table
}

// history is a bounded log, oldest first. A limit of zero keeps nothing.
type history struct {
	limit   int
	entries []HistoryEntry
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) add(e HistoryEntry) {
	if h.limit <= 0 {
		return
	}
	e.Undoable = e.before != nil
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.limit; over > 0 {
		// Drop references so evicted snapshots can be collected.
		for i := 0; i < over; i++ {
			h.entries[i] = HistoryEntry{}
		}
		h.entries = h.entries[over:]
	}
}

// list returns the entries newest first.
func (h *history) list() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		e.before = nil
		out[len(out)-1-i] = e
	}
	return out
}

// popUndo removes and returns the newest change that can be undone. Undo
// entries themselves are skipped so repeated undos walk further back.
func (h *history) popUndo() (HistoryEntry, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if e.Action == ActionUndo {
			continue
		}
		if e.before == nil {
			return HistoryEntry{}, false
		}
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
		return e, true
	}
	return HistoryEntry{}, false
}
