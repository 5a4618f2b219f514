package stats

import (
	"sort"
	"strings"
)

// DefaultPositions is the fixed position universe offered by the dashboard.
var DefaultPositions = []string{"RB", "QB", "WR", "FB", "TE"}

// Set is a string set used for team/position membership.
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// ParseSet splits a comma list ("DAL,NE") into a set, dropping blanks.
func ParseSet(csv string) Set {
	s := Set{}
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			s[p] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Selection is the user's team/position choice.
type Selection struct {
	Teams     Set
	Positions Set
}

// DefaultSelection selects every team seen in t and every default position.
func DefaultSelection(t Table) Selection {
	return Selection{
		Teams:     NewSet(t.Unique(ColTeam)...),
		Positions: NewSet(DefaultPositions...),
	}
}

// Filter keeps rows whose Tm is in teams and whose Pos is in positions.
// Row order and columns are preserved; an empty table or empty set yields no rows.
func Filter(t Table, teams, positions Set) Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	if t.Empty() || len(teams) == 0 || len(positions) == 0 {
		return out
	}
	for _, r := range t.Rows {
		tm, ok := r[ColTeam]
		if !ok || tm.IsMissing() || !teams.Has(tm.String()) {
			continue
		}
		pos, ok := r[ColPos]
		if !ok || pos.IsMissing() || !positions.Has(pos.String()) {
			continue
		}
		out.Rows = append(out.Rows, r.clone())
	}
	return out
}

// Apply is Filter with a Selection.
func (s Selection) Apply(t Table) Table { return Filter(t, s.Teams, s.Positions) }
