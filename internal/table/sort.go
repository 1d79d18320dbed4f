package table

import "sort"

// SortKey names one column of a multi-key sort.
type SortKey struct {
	Ref  string
	Desc bool
}

// Sort orders rows by keys using Compare. Ties on a key fall through to the
// next key; rows tied on every key keep their original relative order. Keys
// that do not resolve are ignored.
func (t *Table) Sort(keys ...SortKey) {
	type col struct {
		idx  int
		desc bool
	}
	cols := make([]col, 0, len(keys))
	for _, k := range keys {
		if i, ok := t.FieldIndex(k.Ref); ok {
			cols = append(cols, col{idx: i, desc: k.Desc})
		}
	}
	if len(cols) == 0 {
		return
	}

	sort.SliceStable(t.Rows, func(a, b int) bool {
		for _, c := range cols {
			cmp := Compare(t.Rows[a][c.idx], t.Rows[b][c.idx])
			if cmp == 0 {
				continue
			}
			if c.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
