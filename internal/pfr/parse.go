package pfr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// HeaderRow is the index of the column-name row on PFR stat tables.
// Row 0 is the grouping "over header" (Games, Rushing, ...).
const HeaderRow = 1

var (
	ErrNoTable  = errors.New("no table found")
	ErrNoHeader = errors.New("header row missing")
)

const maxColspan = 100

// uncomment strips comment markers; PFR ships most secondary tables inside <!-- -->.
func uncomment(html string) string {
	clean := strings.ReplaceAll(html, "<!--", "")
	return strings.ReplaceAll(clean, "-->", "")
}

// loadDocument parses the page as served. Only when it carries no live
// table is the commented markup unwrapped and parsed again.
func loadDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if doc.Find("table").Length() > 0 || !strings.Contains(html, "<!--") {
		return doc, nil
	}
	doc, err = goquery.NewDocumentFromReader(strings.NewReader(uncomment(html)))
	if err != nil {
		return nil, fmt.Errorf("parse uncommented html: %w", err)
	}
	return doc, nil
}

// ParseFirstTable reads the first <table> in html. The row at headerRow names
// the columns; earlier rows are dropped and later rows become data, including
// any repeated header rows PFR inserts every 30 players.
func ParseFirstTable(html string, headerRow int) (stats.Table, error) {
	doc, err := loadDocument(html)
	if err != nil {
		return stats.Table{}, err
	}
	return firstTable(doc, headerRow)
}

func firstTable(doc *goquery.Document, headerRow int) (stats.Table, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return stats.Table{}, ErrNoTable
	}

	var grid [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// skip rows of nested tables
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		if cells := rowCells(tr); len(cells) > 0 {
			grid = append(grid, cells)
		}
	})
	if headerRow < 0 || headerRow >= len(grid) {
		return stats.Table{}, fmt.Errorf("%w: want row %d, table has %d rows", ErrNoHeader, headerRow, len(grid))
	}

	out := stats.Table{Columns: columnNames(grid[headerRow])}
	for _, cells := range grid[headerRow+1:] {
		r := make(stats.Row, len(out.Columns))
		for j, c := range out.Columns {
			if j < len(cells) {
				r[c] = stats.Parse(cells[j])
			} else {
				r[c] = stats.Missing()
			}
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// rowCells returns the text of a row's th/td cells with colspan expanded.
func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		txt := strings.TrimSpace(cell.Text())
		span, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr("colspan", "1")))
		if err != nil || span < 1 {
			span = 1
		}
		if span > maxColspan {
			span = maxColspan
		}
		for i := 0; i < span; i++ {
			cells = append(cells, txt)
		}
	})
	return cells
}

// columnNames fills blank headers and suffixes repeats: Yds, Yds.1, Yds.2.
func columnNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for j, h := range raw {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", j)
		}
		name := h
		if n, ok := seen[h]; ok {
			for {
				n++
				name = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		out[j] = name
	}
	return out
}

// DumpTablesForDebug logs id, class and header text of every table on the page.
func DumpTablesForDebug(ctx context.Context, logger *slog.Logger, doc *goquery.Document, pageTag string) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	doc.Find("table").Each(func(i int, t *goquery.Selection) {
		id, _ := t.Attr("id")
		cl := t.AttrOr("class", "")
		var heads []string
		t.Find("thead tr").Last().Find("th,td").Each(func(_ int, h *goquery.Selection) {
			txt := strings.ToLower(strings.TrimSpace(h.Text()))
			if txt != "" {
				heads = append(heads, txt)
			}
		})
		logger.DebugContext(ctx, "pfr: table", "index", i, "id", id, "class", cl,
			"headers", strings.Join(heads, "|"), "page", pageTag)
	})
}
