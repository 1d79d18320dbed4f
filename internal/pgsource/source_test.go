package pgsource

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datamaster/internal/table"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeRows struct {
	pgx.Rows
	fields []string
	values [][]any
	err    error

	pos    int
	closed bool
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, f := range r.fields {
		out[i] = pgconn.FieldDescription{Name: f}
	}
	return out
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

type fakeTx struct {
	pgx.Tx
	rows     *fakeRows
	queryErr error

	gotSQL     string
	rolledBack bool
}

func (tx *fakeTx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	tx.gotSQL = sql
	if tx.queryErr != nil {
		return nil, tx.queryErr
	}
	return tx.rows, nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
	gotOpts  pgx.TxOptions
	deadline bool
}

func (db *fakeDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	db.gotOpts = opts
	_, db.deadline = ctx.Deadline()
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return db.tx, nil
}

// ============================================================================
// Import
// ============================================================================

func TestSource_Import(t *testing.T) {
	rows := &fakeRows{
		fields: []string{"id", "name", "amount"},
		values: [][]any{
			{int32(1), "Anna", pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}},
			{int32(2), nil, pgtype.Numeric{Int: big.NewInt(7), Exp: 0, Valid: true}},
		},
	}
	db := &fakeDB{tx: &fakeTx{rows: rows}}
	src := New(db, WithTimeout(time.Minute))

	got, err := src.Import(context.Background(), "SELECT id, name, amount FROM people", 10)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	want := table.New([]string{"id", "name", "amount"}, []table.Row{
		{int64(1), "Anna", 12.5},
		{int64(2), nil, int64(7)},
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	if db.gotOpts.AccessMode != pgx.ReadOnly {
		t.Errorf("AccessMode = %q, want read only", db.gotOpts.AccessMode)
	}
	if !db.deadline {
		t.Error("timeout should set a deadline")
	}
	if !db.tx.rolledBack || !rows.closed {
		t.Errorf("rolledBack = %v, closed = %v; want both", db.tx.rolledBack, rows.closed)
	}
	if db.tx.gotSQL != "SELECT id, name, amount FROM people" {
		t.Errorf("sql = %q", db.tx.gotSQL)
	}
}

func TestSource_ImportEmptyResult(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{rows: &fakeRows{fields: []string{"a"}}}}

	got, err := New(db).Import(context.Background(), "SELECT a FROM t WHERE false", 0)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got.Len() != 0 || len(got.Fields) != 1 {
		t.Errorf("got %d rows, %d fields", got.Len(), len(got.Fields))
	}
	if db.deadline {
		t.Error("no timeout configured, no deadline expected")
	}
}

func TestSource_ImportErrors(t *testing.T) {
	boom := errors.New("relation \"nope\" does not exist")
	rowsErr := errors.New("conn closed")

	tests := []struct {
		name    string
		db      *fakeDB
		sql     string
		maxRows int
		wantErr error
	}{
		{
			name:    "blank query",
			db:      &fakeDB{tx: &fakeTx{}},
			sql:     " ;\n",
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "begin fails",
			db:      &fakeDB{beginErr: boom},
			sql:     "SELECT 1",
			wantErr: boom,
		},
		{
			name:    "query fails",
			db:      &fakeDB{tx: &fakeTx{queryErr: boom}},
			sql:     "SELECT * FROM nope",
			wantErr: boom,
		},
		{
			name: "too many rows",
			db: &fakeDB{tx: &fakeTx{rows: &fakeRows{
				fields: []string{"n"},
				values: [][]any{{int64(1)}, {int64(2)}, {int64(3)}},
			}}},
			sql:     "SELECT n FROM t",
			maxRows: 2,
			wantErr: ErrTooManyRows,
		},
		{
			name:    "rows error",
			db:      &fakeDB{tx: &fakeTx{rows: &fakeRows{fields: []string{"n"}, err: rowsErr}}},
			sql:     "SELECT n FROM t",
			wantErr: rowsErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.db).Import(context.Background(), tt.sql, tt.maxRows)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.db.tx != nil && tt.db.tx.rows != nil && !tt.db.tx.rolledBack {
				t.Error("transaction not rolled back")
			}
		})
	}
}

// ============================================================================
// Cell conversion
// ============================================================================

func TestCell(t *testing.T) {
	id := [16]byte{0x55, 0x0e, 0x84, 0x00, 0xe2, 0x9b, 0x41, 0xd4, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"bool", true, true},
		{"int16", int16(-4), int64(-4)},
		{"int32", int32(7), int64(7)},
		{"float32", float32(0.5), 0.5},
		{"numeric fraction", pgtype.Numeric{Int: big.NewInt(-305), Exp: -1, Valid: true}, -30.5},
		{"numeric integral with exponent", pgtype.Numeric{Int: big.NewInt(12), Exp: 3, Valid: true}, int64(12000)},
		{"numeric trailing zeros", pgtype.Numeric{Int: big.NewInt(1500), Exp: -2, Valid: true}, int64(15)},
		{"numeric null", pgtype.Numeric{}, nil},
		{"numeric infinity", pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}, "Infinity"},
		{"numeric negative infinity", pgtype.Numeric{InfinityModifier: pgtype.NegativeInfinity, Valid: true}, "-Infinity"},
		{"numeric NaN", pgtype.Numeric{NaN: true, Valid: true}, "NaN"},
		{"float NaN", math.NaN(), "NaN"},
		{"float infinity", math.Inf(1), "Infinity"},
		{"float32 negative infinity", float32(math.Inf(-1)), "-Infinity"},
		{
			"numeric beyond int64",
			pgtype.Numeric{Int: new(big.Int).Lsh(big.NewInt(1), 70), Valid: true},
			"1180591620717411303424",
		},
		{"uuid", id, "550e8400-e29b-41d4-a716-446655440000"},
		{"date", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), "2024-03-09"},
		{
			"timestamp",
			time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
			"2024-03-09T14:30:00Z",
		},
		{"zero time", time.Time{}, nil},
		{"text bytes", []byte("hello"), "hello"},
		{"binary bytes", []byte{0xff, 0x00}, `\xff00`},
		{"json object", map[string]any{"a": 1.0}, `{"a":1}`},
		{"array", []any{"x", int32(2)}, `["x",2]`},
		{"pg text", pgtype.Text{String: "t", Valid: true}, "t"},
		{"pg null bool", pgtype.Bool{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cell(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Cell(%v) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestCellEncodesAsJSON(t *testing.T) {
	inputs := []any{
		math.NaN(),
		math.Inf(1),
		pgtype.Numeric{NaN: true, Valid: true},
		pgtype.Numeric{InfinityModifier: pgtype.NegativeInfinity, Valid: true},
	}
	for _, in := range inputs {
		if _, err := json.Marshal(Cell(in)); err != nil {
			t.Errorf("json.Marshal(Cell(%v)) error = %v", in, err)
		}
	}
}
