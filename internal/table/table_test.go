package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ============================================================================
// Construction
// ============================================================================

func TestNew_FitsRowsToWidth(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{{"1"}, {"1", "2", "3"}})

	want := []Row{{"1", nil}, {"1", "2"}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFromTable(t *testing.T) {
	raw := [][]any{
		{"id", "name", "age"},
		{1, "Anna", 30},
		{2, "Ben"},
	}

	tests := []struct {
		name       string
		opts       TableOptions
		wantFields []string
		wantRows   int
	}{
		{
			name:       "index field names by default",
			wantFields: []string{"0", "1", "2"},
			wantRows:   3,
		},
		{
			name:       "headers in first row",
			opts:       TableOptions{HeadersInFirstRow: true},
			wantFields: []string{"id", "name", "age"},
			wantRows:   2,
		},
		{
			name:       "short header list",
			opts:       TableOptions{Headers: []string{"x"}},
			wantFields: []string{"x", "1", "2"},
			wantRows:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := FromTable(raw, tt.opts)
			if diff := cmp.Diff(tt.wantFields, tbl.Fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
			if tbl.Len() != tt.wantRows {
				t.Errorf("Len() = %d, want %d", tbl.Len(), tt.wantRows)
			}
			for i, row := range tbl.Rows {
				if len(row) != len(tbl.Fields) {
					t.Errorf("row %d has %d cells, want %d", i, len(row), len(tbl.Fields))
				}
			}
		})
	}
}

func TestFromTable_CopiesInput(t *testing.T) {
	raw := [][]any{{"a"}}
	tbl := FromTable(raw, TableOptions{})
	tbl.Rows[0][0] = "changed"

	if raw[0][0] != "a" {
		t.Errorf("source mutated: %v", raw[0][0])
	}
}

func TestFromRecordset(t *testing.T) {
	records := []map[string]any{
		{"b": 2, "a": 1},
		{"a": 3},
	}

	tbl := FromRecordset(records)

	if diff := cmp.Diff([]string{"a", "b"}, tbl.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	want := []Row{{1, 2}, {3, nil}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	back := tbl.Recordset()
	if back[1]["a"] != 3 || back[1]["b"] != nil {
		t.Errorf("Recordset() = %v", back)
	}
}

func TestClone_IsDeep(t *testing.T) {
	tbl := New([]string{"a"}, []Row{{"x"}})
	c := tbl.Clone()
	c.Rows[0][0] = "y"
	c.Fields[0] = "b"

	if tbl.Rows[0][0] != "x" || tbl.Fields[0] != "a" {
		t.Errorf("Clone shares state with source: %v %v", tbl.Fields, tbl.Rows)
	}
}

// ============================================================================
// Field Resolution
// ============================================================================

func TestFieldIndex(t *testing.T) {
	fields := []string{"id", "name", "id", "7"}

	tests := []struct {
		ref    string
		want   int
		wantOK bool
	}{
		{"id", 0, true},       // first occurrence wins
		{"name", 1, true},
		{"2", 2, true},        // index reference
		{"7", 3, true},        // name beats index
		{"4", -1, false},      // out of range
		{"-1", -1, false},     // not digits
		{"missing", -1, false},
		{"", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := FieldIndex(fields, tt.ref)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FieldIndex(%q) = %d, %v; want %d, %v", tt.ref, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestColumn_Distinct(t *testing.T) {
	tbl := New([]string{"v"}, []Row{{"a"}, {nil}, {"a"}, {""}, {nil}})

	got, ok := tbl.Column("v", true)
	if !ok {
		t.Fatal("Column() not found")
	}
	want := []any{"a", nil, ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Column mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Mutators
// ============================================================================

func TestAddRow(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{{"1", "2"}})

	tbl.AddRow([]any{"0"}, 0)
	tbl.AddRow([]any{"9", "9", "9"}, -1)
	tbl.AddRecord(map[string]any{"b": "r", "zzz": "ignored"}, 100)

	want := []Row{{"0", nil}, {"1", "2"}, {"9", "9"}, {nil, "r"}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveRow(t *testing.T) {
	tbl := New([]string{"a"}, []Row{{"1"}, {"2"}, {"3"}})

	if !tbl.RemoveRow(1) {
		t.Fatal("RemoveRow(1) = false")
	}
	if tbl.RemoveRow(5) {
		t.Error("RemoveRow(5) = true, want false")
	}
	if diff := cmp.Diff([]Row{{"1"}, {"3"}}, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRemoveColumn(t *testing.T) {
	tbl := New([]string{"a", "c"}, []Row{{"1", "3"}, {"4", "6"}})

	tbl.AddColumn("b", []any{"2"}, "c")
	if diff := cmp.Diff([]string{"a", "b", "c"}, tbl.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Row{{"1", "2", "3"}, {"4", nil, "6"}}, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if !tbl.RemoveColumn("a") {
		t.Fatal("RemoveColumn(a) = false")
	}
	if diff := cmp.Diff([]Row{{"2", "3"}, {nil, "6"}}, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch after remove (-want +got):\n%s", diff)
	}
}

func TestReorder(t *testing.T) {
	tbl := New([]string{"a", "b", "c"}, []Row{{1, 2, 3}})

	tbl.Reorder([]string{"c", "nope", "0"})

	if diff := cmp.Diff([]string{"c", "a"}, tbl.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Row{{3, 1}}, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRenameFields(t *testing.T) {
	tbl := New([]string{"a", "b", "c"}, []Row{{1, 2, 3}})

	tbl.RenameFields([]FieldRename{{From: "c", To: "z"}, {From: "a", To: "y"}}, true)

	if diff := cmp.Diff([]string{"z", "y"}, tbl.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Row{{3, 1}}, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSetFieldNames(t *testing.T) {
	tbl := New([]string{"a", "b"}, nil)
	tbl.SetFieldNames([]string{"x", "y", "z"})
	if diff := cmp.Diff([]string{"x", "y"}, tbl.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Sort & Compare
// ============================================================================

func TestSort_MultiKeyStable(t *testing.T) {
	tbl := New([]string{"group", "n", "tag"}, []Row{
		{"b", 2, "first"},
		{"a", 1, "second"},
		{"b", 1, "third"},
		{"a", 1, "fourth"},
	})

	tbl.Sort(SortKey{Ref: "group"}, SortKey{Ref: "n", Desc: true})

	var got []any
	for _, row := range tbl.Rows {
		got = append(got, row[2])
	}
	want := []any{"second", "fourth", "first", "third"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_UnknownKeyIsNoop(t *testing.T) {
	tbl := New([]string{"a"}, []Row{{"2"}, {"1"}})
	tbl.Sort(SortKey{Ref: "missing"})
	if tbl.Rows[0][0] != "2" {
		t.Errorf("rows reordered by unknown key: %v", tbl.Rows)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nil first", nil, "a", -1},
		{"nil equal", nil, nil, 0},
		{"numbers", 2, 10.5, -1},
		{"number vs numeric string", 10, "9", 1},
		{"strings bytewise", "10", "9", -1},
		{"bools", false, true, -1},
		{"mixed falls back to strings", "b", true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(3), "3"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
	}

	for _, tt := range tests {
		if got := String(tt.in); got != tt.want {
			t.Errorf("String(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"123", "123", true},
		{"$1,234.50", "1234.5", true},
		{"(12.5)", "-12.5", true},
		{"  7  ", "7", true},
		{3, "3", true},
		{"abc", "0", false},
		{"", "0", false},
		{nil, "0", false},
		{true, "0", false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.wantOK || got.String() != tt.want {
			t.Errorf("ParseNumber(%#v) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

// ============================================================================
// Aggregates
// ============================================================================

func TestSumColumns(t *testing.T) {
	tbl := New([]string{"label", "x", "y"}, []Row{
		{"r1", "0.1", 2},
		{"r2", "0.2", "n/a"},
	})

	tbl.SumColumns(SumOptions{Label: "Total"})

	want := Row{"Total", 0.3, float64(2)}
	if diff := cmp.Diff(want, tbl.Rows[2]); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestSumColumns_Average(t *testing.T) {
	tbl := New([]string{"x"}, []Row{{"2"}, {"4"}, {nil}})

	tbl.SumColumns(SumOptions{Refs: []string{"x"}, Average: true})

	if got := tbl.Rows[3][0]; got != float64(3) {
		t.Errorf("average = %v, want 3", got)
	}
}

func TestSumRows(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{{"1", "2"}, {"x", "5"}, {"3", "3"}})

	tbl.SumRows(SumOptions{Rows: []int{0, 1}})

	if tbl.Fields[2] != "Total" {
		t.Errorf("new field = %q, want Total", tbl.Fields[2])
	}
	got := []any{tbl.Rows[0][2], tbl.Rows[1][2], tbl.Rows[2][2]}
	want := []any{float64(3), float64(5), nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("row totals mismatch (-want +got):\n%s", diff)
	}
}

func TestPivot(t *testing.T) {
	tbl := New([]string{"metric", "q1", "q2"}, []Row{
		{"sales", 10, 20},
		{"costs", 5, 6},
	})

	tbl.Pivot()

	if diff := cmp.Diff([]string{"metric", "sales", "costs"}, tbl.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	want := []Row{{"q1", 10, 5}, {"q2", 20, 6}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{
		{"1", "x"},
		{"1", "y"},
		{"1", "x"},
		{"2", "x"},
	})

	if n := tbl.RemoveDuplicates("a"); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	want := []Row{{"1", "x"}, {"2", "x"}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReplace(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{{"Foo bar", "foo"}, {nil, 12}})

	if err := tbl.Replace("FOO", "baz", "a"); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	want := []Row{{"baz bar", "foo"}, {"", 12}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if err := tbl.Replace("(", "x"); err == nil {
		t.Error("Replace() with invalid pattern should fail")
	}
}

func TestSearch(t *testing.T) {
	tbl := New([]string{"name", "city"}, []Row{
		{"Anna", "Oslo"},
		{"Ben", "Bergen"},
		{nil, "Stavanger"},
	})

	if diff := cmp.Diff([]int{1, 2}, tbl.Search("ER")); diff != "" {
		t.Errorf("Search mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.Search("anna", "city"); got != nil {
		t.Errorf("Search restricted to city = %v, want none", got)
	}
}
