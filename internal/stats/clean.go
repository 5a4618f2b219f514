package stats

// Clean strips the header rows PFR repeats inside the body (Age == "Age"),
// fills missing cells with 0 and drops the Rk column.
func Clean(raw Table) Table {
	cols := make([]string, 0, len(raw.Columns))
	for _, c := range raw.Columns {
		if c != ColRank {
			cols = append(cols, c)
		}
	}

	out := Table{Columns: cols, Rows: make([]Row, 0, len(raw.Rows))}
	for _, r := range raw.Rows {
		if age, ok := r[ColAge]; ok && !age.IsMissing() && age.String() == ColAge {
			continue
		}
		nr := make(Row, len(cols))
		for _, c := range cols {
			v, ok := r[c]
			if !ok || v.IsMissing() {
				v = Number(0)
			}
			nr[c] = v
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}
