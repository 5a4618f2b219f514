package stats

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Column names the rest of the pipeline relies on.
const (
	ColTeam = "Tm"
	ColPos  = "Pos"
	ColAge  = "Age"
	ColRank = "Rk"
)

// JSON-number shaped; anything else scraped from a cell is kept as a string.
var numRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

// Value is one cell: a string, a number, or missing.
// Numbers keep the text they were scraped with so "4.50" stays "4.50".
type Value struct {
	text  string
	valid bool
}

func Missing() Value { return Value{} }
func String(s string) Value { return Value{text: s, valid: true} }

func Number(f float64) Value {
	return Value{text: strconv.FormatFloat(f, 'f', -1, 64), valid: true}
}

// Parse turns raw cell text into a Value. Blank cells are missing.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing()
	}
	return String(s)
}

func (v Value) IsMissing() bool { return !v.valid }
func (v Value) IsNumber() bool { return v.valid && numRe.MatchString(v.text) }

// String renders the cell for display and CSV; missing renders empty.
func (v Value) String() string { return v.text }

func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.valid:
		return []byte("null"), nil
	case v.IsNumber():
		return []byte(v.text), nil
	default:
		return json.Marshal(v.text)
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = Missing()
		return nil
	}
	if numRe.MatchString(s) {
		*v = String(s)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("stats value: %w", err)
	}
	*v = String(str)
	return nil
}

// Row maps column name to cell. A column absent from the map is missing.
type Row map[string]Value

// Table is an ordered set of columns and rows.
// Operations in this package never mutate their input.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) Len() int { return len(t.Rows) }
func (t Table) Empty() bool { return len(t.Rows) == 0 }
func (t Table) Shape() (int, int) { return len(t.Rows), len(t.Columns) }

func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Record returns the row's cells in column order.
func (t Table) Record(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = t.Rows[i][c].String()
	}
	return out
}

// Unique returns the sorted distinct non-missing values of a column.
func (t Table) Unique(col string) []string {
	seen := map[string]struct{}{}
	for _, r := range t.Rows {
		v, ok := r[col]
		if !ok || v.IsMissing() {
			continue
		}
		seen[v.String()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// wire shape: {"columns":[...],"rows":[[...],...]}
type tableJSON struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

func (t Table) MarshalJSON() ([]byte, error) {
	w := tableJSON{Columns: t.Columns, Rows: make([][]Value, len(t.Rows))}
	if w.Columns == nil {
		w.Columns = []string{}
	}
	for i, r := range t.Rows {
		cells := make([]Value, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = r[c]
		}
		w.Rows[i] = cells
	}
	return json.Marshal(w)
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var w tableJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Table{Columns: w.Columns}
	for i, cells := range w.Rows {
		if len(cells) != len(w.Columns) {
			return fmt.Errorf("stats table: row %d has %d cells, want %d", i, len(cells), len(w.Columns))
		}
		r := make(Row, len(cells))
		for j, c := range w.Columns {
			r[c] = cells[j]
		}
		out.Rows = append(out.Rows, r)
	}
	*t = out
	return nil
}
