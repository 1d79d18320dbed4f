package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datamaster/internal/csvcodec"
	"github.com/JonMunkholm/datamaster/internal/filter"
	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/query"
	"github.com/JonMunkholm/datamaster/internal/table"
)

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrTableExists       = errors.New("table already exists")
	ErrInvalidName       = errors.New("invalid table name")
	ErrWorkspaceFull     = errors.New("table limit reached")
	ErrTooManyRows       = errors.New("too many rows")
	ErrEmptyInput        = errors.New("empty input")
	ErrInvalidRecords    = errors.New("invalid records")
	ErrImportUnavailable = errors.New("import unavailable")
	ErrImportQuery       = errors.New("import query")
	ErrNothingToUndo     = errors.New("nothing to undo")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,63}$`)

// Importer loads the result of a database query as a table.
type Importer interface {
	Import(ctx context.Context, sql string, maxRows int) (*table.Table, error)
}

// Options configures a Service. Zero values select the defaults noted.
type Options struct {
	MaxTables      int   // default 100
	MaxRows        int   // default 1,000,000
	MaxUploadBytes int64 // default 32MB
	HistorySize    int   // 0 keeps no history

	Limiter    *LoadLimiter      // default NewLoadLimiter(0, 0)
	Importer   Importer          // nil disables Import
	Predicates filter.Predicates // default filter.Builtins()

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Service holds the workspace: a set of named in-memory tables.
//
// Each table has its own lock. SELECT and export take the read lock; every
// change takes the write lock, so statements on one table are serialized
// while different tables proceed independently.
type Service struct {
	opts    Options
	exec    query.Executor
	limiter *LoadLimiter

	mu     sync.RWMutex
	tables map[string]*entry
}

type entry struct {
	name       string
	source     string
	created    time.Time
	lastAccess atomic.Int64 // unix nanoseconds

	mu      sync.RWMutex
	table   *table.Table
	updated time.Time
	history *history
}

// TableInfo describes a table in the workspace.
type TableInfo struct {
	Name      string    `json:"name"`
	Fields    []string  `json:"fields"`
	Rows      int       `json:"rows"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadOptions controls how delimited text becomes a table.
type LoadOptions struct {
	TSV     bool
	NoCR    bool
	Headers bool // first row holds the field names
	Replace bool // overwrite an existing table
}

// NewService creates an empty workspace.
func NewService(opts Options) *Service {
	if opts.MaxTables <= 0 {
		opts.MaxTables = 100
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 1_000_000
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLoadLimiter(0, 0)
	}
	if opts.Predicates == nil {
		opts.Predicates = filter.Builtins()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		opts: opts,
		exec: query.Executor{
			Predicates: opts.Predicates,
			Insert:     query.InsertValues,
		},
		limiter: opts.Limiter,
		tables:  make(map[string]*entry),
	}
}

// Limiter returns the load limiter, for shutdown draining and status.
func (s *Service) Limiter() *LoadLimiter {
	return s.limiter
}

// ImportEnabled reports whether Import can be used.
func (s *Service) ImportEnabled() bool {
	return s.opts.Importer != nil
}

// ============================================================================
// Loading
// ============================================================================

// Load decodes CSV or TSV text from r into the table name.
func (s *Service) Load(ctx context.Context, name string, r io.Reader, opts LoadOptions) (TableInfo, error) {
	if err := checkName(name); err != nil {
		return TableInfo{}, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return TableInfo{}, err
	}
	defer s.limiter.Release()

	cells, err := csvcodec.DecodeReader(r, csvcodec.DecodeOptions{
		TSV:      opts.TSV,
		NoCR:     opts.NoCR,
		MaxBytes: s.opts.MaxUploadBytes,
	})
	if err != nil {
		return TableInfo{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if len(cells) == 0 {
		return TableInfo{}, fmt.Errorf("load %s: %w", name, ErrEmptyInput)
	}

	t := table.FromStrings(cells, table.TableOptions{HeadersInFirstRow: opts.Headers})
	return s.put(ctx, name, t, ActionLoad, opts.Replace)
}

// LoadRecords stores a recordset as the table name. fields fixes the
// column order; when empty the sorted keys of the first record are used.
func (s *Service) LoadRecords(ctx context.Context, name string, records []map[string]any, fields []string, replace bool) (TableInfo, error) {
	if err := checkName(name); err != nil {
		return TableInfo{}, err
	}
	if len(records) == 0 {
		return TableInfo{}, fmt.Errorf("load %s: %w", name, ErrEmptyInput)
	}

	return s.put(ctx, name, table.FromRecordset(records, fields...), ActionLoad, replace)
}

// Import runs sql against the configured database and stores the result.
func (s *Service) Import(ctx context.Context, name, sql string, replace bool) (TableInfo, error) {
	if s.opts.Importer == nil {
		return TableInfo{}, ErrImportUnavailable
	}
	if err := checkName(name); err != nil {
		return TableInfo{}, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return TableInfo{}, err
	}
	defer s.limiter.Release()

	t, err := s.opts.Importer.Import(ctx, sql, s.opts.MaxRows)
	if err != nil {
		return TableInfo{}, fmt.Errorf("%w: %w", ErrImportQuery, err)
	}
	return s.put(ctx, name, t, ActionImport, replace)
}

func (s *Service) put(ctx context.Context, name string, t *table.Table, action string, replace bool) (TableInfo, error) {
	if t.Len() > s.opts.MaxRows {
		return TableInfo{}, fmt.Errorf("%s %s: %w (%d > %d)", action, name, ErrTooManyRows, t.Len(), s.opts.MaxRows)
	}
	now := s.opts.Now()
	actor := ActorFromContext(ctx)

	s.mu.Lock()
	e, exists := s.tables[name]
	if !exists {
		if len(s.tables) >= s.opts.MaxTables {
			s.mu.Unlock()
			return TableInfo{}, fmt.Errorf("%s %s: %w (%d)", action, name, ErrWorkspaceFull, s.opts.MaxTables)
		}
		e = &entry{
			name:    name,
			source:  action,
			created: now,
			table:   t,
			updated: now,
			history: newHistory(s.opts.HistorySize),
		}
		e.touch(now)
		e.history.add(newEntry(now, action, "", t.Len(), t.Len(), actor, nil))
		s.tables[name] = e
		s.mu.Unlock()

		logging.WithFields(ctx, "table", name, "action", action).
			Info("table created", "rows", t.Len(), "fields", len(t.Fields))
		return e.info(), nil
	}
	s.mu.Unlock()

	if !replace {
		return TableInfo{}, fmt.Errorf("%s %s: %w", action, name, ErrTableExists)
	}

	e.mu.Lock()
	before := e.table
	e.table = t
	e.updated = now
	e.history.add(newEntry(now, ActionReplace, "", t.Len(), t.Len(), actor, before))
	e.mu.Unlock()
	e.touch(now)

	logging.WithFields(ctx, "table", name, "action", ActionReplace).
		Info("table replaced", "rows", t.Len(), "previous_rows", before.Len())
	return e.info(), nil
}

// ============================================================================
// Queries
// ============================================================================

// Query runs statement against the table name. The returned result never
// aliases workspace state.
func (s *Service) Query(ctx context.Context, name, statement string) (*query.Result, error) {
	e, err := s.get(name)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()
	e.touch(now)

	if readOnly(statement) {
		e.mu.RLock()
		defer e.mu.RUnlock()
		return s.exec.Execute(ctx, statement, e.table)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.table.Clone()
	res, err := s.exec.Execute(ctx, statement, e.table)
	if err != nil {
		e.table = before
		return nil, err
	}
	if e.table.Len() > s.opts.MaxRows {
		rows := e.table.Len()
		e.table = before
		return nil, fmt.Errorf("query %s: %w (%d > %d)", name, ErrTooManyRows, rows, s.opts.MaxRows)
	}

	if res.Affected > 0 {
		e.updated = now
		e.history.add(newEntry(now, strings.ToLower(res.Verb), statement, res.Affected, e.table.Len(), ActorFromContext(ctx), before))
		logging.WithFields(ctx, "table", name, "verb", res.Verb).
			Info("table modified", "affected", res.Affected, "rows", e.table.Len())
	}

	res.Table = e.table.Clone()
	return res, nil
}

// Filter returns the indices of rows in the table name matching where.
// Unlike queries, a where that does not compile is reported.
func (s *Service) Filter(ctx context.Context, name, where string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.get(name)
	if err != nil {
		return nil, err
	}
	e.touch(s.opts.Now())

	e.mu.RLock()
	defer e.mu.RUnlock()

	expr, err := filter.Compile(where, e.table.Fields, s.opts.Predicates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", query.ErrInvalidWhere, err)
	}
	return expr.Filter(e.table).Indices, nil
}

// Export encodes the table name as delimited text.
func (s *Service) Export(ctx context.Context, name string, opts csvcodec.EncodeOptions) (string, error) {
	e, err := s.get(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.touch(s.opts.Now())

	e.mu.RLock()
	defer e.mu.RUnlock()
	return csvcodec.EncodeTable(e.table, opts), nil
}

// Snapshot returns a copy of the table name.
func (s *Service) Snapshot(name string) (*table.Table, TableInfo, error) {
	e, err := s.get(name)
	if err != nil {
		return nil, TableInfo{}, err
	}
	e.touch(s.opts.Now())

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table.Clone(), e.infoLocked(), nil
}

// ============================================================================
// Workspace
// ============================================================================

// Info describes the table name.
func (s *Service) Info(name string) (TableInfo, error) {
	e, err := s.get(name)
	if err != nil {
		return TableInfo{}, err
	}
	return e.info(), nil
}

// List describes every table, sorted by name.
func (s *Service) List() []TableInfo {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tables))
	for _, e := range s.tables {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	infos := make([]TableInfo, len(entries))
	for i, e := range entries {
		infos[i] = e.info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Count returns the number of tables.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}

// Drop removes the table name.
func (s *Service) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	_, ok := s.tables[name]
	delete(s.tables, name)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("drop %s: %w", name, ErrTableNotFound)
	}
	logging.WithFields(ctx, "table", name).Info("table dropped")
	return nil
}

// History returns the changes to the table name, newest first.
func (s *Service) History(name string) ([]HistoryEntry, error) {
	e, err := s.get(name)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.list(), nil
}

// Undo restores the table name to its state before the newest change that
// can be undone.
func (s *Service) Undo(ctx context.Context, name string) (HistoryEntry, error) {
	e, err := s.get(name)
	if err != nil {
		return HistoryEntry{}, err
	}
	now := s.opts.Now()
	e.touch(now)

	e.mu.Lock()
	defer e.mu.Unlock()

	undone, ok := e.history.popUndo()
	if !ok {
		return HistoryEntry{}, fmt.Errorf("undo %s: %w", name, ErrNothingToUndo)
	}
	e.table = undone.before
	e.updated = now
	e.history.add(newEntry(now, ActionUndo, undone.ID.String(), undone.Affected, e.table.Len(), ActorFromContext(ctx), nil))

	logging.WithFields(ctx, "table", name).
		Info("change undone", "action", undone.Action, "id", undone.ID, "rows", e.table.Len())

	undone.before = nil
	undone.Undoable = false
	return undone, nil
}

// EvictIdle drops tables not accessed since cutoff and returns their names.
func (s *Service) EvictIdle(cutoff time.Time) []string {
	limit := cutoff.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for name, e := range s.tables {
		if e.lastAccess.Load() < limit {
			delete(s.tables, name)
			evicted = append(evicted, name)
		}
	}
	sort.Strings(evicted)
	return evicted
}

func (s *Service) get(name string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.tables[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return e, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (e *entry) touch(now time.Time) {
	e.lastAccess.Store(now.UnixNano())
}

func (e *entry) info() TableInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.infoLocked()
}

func (e *entry) infoLocked() TableInfo {
	return TableInfo{
		Name:      e.name,
		Fields:    append([]string{}, e.table.Fields...),
		Rows:      e.table.Len(),
		Source:    e.source,
		CreatedAt: e.created,
		UpdatedAt: e.updated,
	}
}

func newEntry(now time.Time, action, statement string, affected, rows int, actor Actor, before *table.Table) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.New(),
		Time:      now,
		Action:    action,
		Statement: statement,
		Affected:  affected,
		Rows:      rows,
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		before:    before,
	}
}

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// readOnly reports whether statement only reads. Anything that is not a
// SELECT takes the write lock, including statements the executor rejects.
func readOnly(statement string) bool {
	fields := strings.Fields(statement)
	return len(fields) > 0 && strings.EqualFold(fields[0], "SELECT")
}
