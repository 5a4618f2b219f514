package pfr

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(b)
}

func TestParseFirstTable_Rushing2019(t *testing.T) {
	tbl, err := ParseFirstTable(readFixture(t, "rushing_2019.html"), HeaderRow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	wantCols := []string{"Rk", "Player", "Tm", "Age", "Pos", "G", "GS", "Att", "Yds", "TD", "1D", "Lng", "Y/A", "Y/G", "Fmb"}
	if strings.Join(tbl.Columns, ",") != strings.Join(wantCols, ",") {
		t.Fatalf("columns = %v, want %v", tbl.Columns, wantCols)
	}
	// 7 players plus the repeated header row
	if tbl.Len() != 8 {
		t.Fatalf("rows = %d, want 8", tbl.Len())
	}

	first := tbl.Rows[0]
	if got := first["Player"].String(); got != "Derrick Henry*" {
		t.Fatalf("player = %q, want %q", got, "Derrick Henry*")
	}
	if got := first["Tm"].String(); got != "TEN" {
		t.Fatalf("team = %q, want TEN", got)
	}
	if !first["Yds"].IsNumber() {
		t.Fatalf("Yds should be numeric, got %q", first["Yds"].String())
	}

	if got := tbl.Rows[2]["Age"].String(); got != "Age" {
		t.Fatalf("repeated header row not kept: Age = %q", got)
	}
	if !tbl.Rows[5]["Fmb"].IsMissing() {
		t.Fatalf("blank Fmb should be missing, got %q", tbl.Rows[5]["Fmb"].String())
	}
}

func TestParseFirstTable_CommentedOnly(t *testing.T) {
	html := `<html><body><div><!--
<table><tr><th colspan="2">Group</th></tr><tr><th>Tm</th><th>Att</th></tr><tr><td>TEN</td><td>445</td></tr></table>
--></div></body></html>`
	tbl, err := ParseFirstTable(html, HeaderRow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Len() != 1 || tbl.Rows[0]["Att"].String() != "445" {
		t.Fatalf("unexpected table: %+v", tbl)
	}
}

func TestParseFirstTable_Errors(t *testing.T) {
	cases := []struct {
		name string
		html string
		want error
	}{
		{"no table", `<html><body><p>Page Not Found (404 error)</p></body></html>`, ErrNoTable},
		{"single row", `<table><tr><th>Rk</th><th>Tm</th></tr></table>`, ErrNoHeader},
		{"empty table", `<table></table>`, ErrNoHeader},
	}
	for _, tc := range cases {
		_, err := ParseFirstTable(tc.html, HeaderRow)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestParseFirstTable_ShortRowsAreMissing(t *testing.T) {
	html := `<table>
<tr><th colspan="3">Rushing</th></tr>
<tr><th>Tm</th><th>Att</th><th>Yds</th></tr>
<tr><td>DAL</td><td colspan="2">Did not play</td></tr>
<tr><td>NWE</td></tr>
</table>`
	tbl, err := ParseFirstTable(html, HeaderRow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tbl.Rows[0]["Yds"].String(); got != "Did not play" {
		t.Fatalf("colspan not expanded: Yds = %q", got)
	}
	if !tbl.Rows[1]["Att"].IsMissing() || !tbl.Rows[1]["Yds"].IsMissing() {
		t.Fatalf("short row should leave trailing cells missing: %+v", tbl.Rows[1])
	}
}

func TestColumnNames(t *testing.T) {
	got := columnNames([]string{"Yds", "", "Yds", "TD", "Yds", "Yds.1"})
	want := []string{"Yds", "Unnamed: 1", "Yds.1", "TD", "Yds.2", "Yds.1.1"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("columnNames = %q, want %q", got, want)
	}
}
