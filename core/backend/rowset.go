package backend

// AffectedColumn is the column title used when a statement reports a row
// tally instead of a result set.
const AffectedColumn = "Row(s) affected"

// Rowset is the uniform shape every backend normalizes statement results
// into: ordered column names plus one map per row.
type Rowset struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Affected builds the single-row rowset carrying an affected-row tally.
func Affected(count int64) *Rowset {
	return &Rowset{
		Columns: []string{AffectedColumn},
		Rows:    []map[string]any{{AffectedColumn: count}},
	}
}

// Empty reports whether the rowset carries no rows. A statement that
// described columns but matched nothing is empty; an affected-count rowset
// is not.
func (rs *Rowset) Empty() bool {
	return rs == nil || len(rs.Rows) == 0
}

// First returns the first row, and false when there is none.
func (rs *Rowset) First() (map[string]any, bool) {
	if rs.Empty() {
		return nil, false
	}
	return rs.Rows[0], true
}

// AffectedCount returns the tally when the rowset is an affected-count
// result, and false for ordinary result sets.
func (rs *Rowset) AffectedCount() (int64, bool) {
	if rs == nil || len(rs.Columns) != 1 || rs.Columns[0] != AffectedColumn || len(rs.Rows) != 1 {
		return 0, false
	}
	count, ok := rs.Rows[0][AffectedColumn].(int64)
	return count, ok
}

// normalizeValue converts driver values into JSON-friendly forms. Text
// columns frequently scan as []byte; everything else passes through.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
