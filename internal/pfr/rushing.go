package pfr

import (
	"context"
	"fmt"
	"strings"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// RushingURL is the league-wide rushing page for a season.
func (c *Client) RushingURL(year int) string {
	return fmt.Sprintf("%s/years/%d/rushing.htm", c.base(), year)
}

func (c *Client) base() string {
	if c.BaseURL == "" {
		return BaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// FetchRushingTable downloads the season's rushing page and returns its first
// table as scraped. The year is not range-checked here.
func (c *Client) FetchRushingTable(ctx context.Context, year int) (stats.Table, error) {
	url := c.RushingURL(year)
	referer := fmt.Sprintf("%s/years/%d/", c.base(), year)

	html, err := c.getText(ctx, url, referer)
	if err != nil {
		return stats.Table{}, fmt.Errorf("fetch %d rushing: %w", year, err)
	}

	doc, err := loadDocument(html)
	if err != nil {
		return stats.Table{}, fmt.Errorf("fetch %d rushing: %w", year, err)
	}
	DumpTablesForDebug(ctx, c.logger(), doc, fmt.Sprintf("rushing %d", year))

	t, err := firstTable(doc, HeaderRow)
	if err != nil {
		return stats.Table{}, fmt.Errorf("parse %s: %w", url, err)
	}
	c.logger().DebugContext(ctx, "pfr: parsed rushing table", "year", year, "rows", t.Len(), "cols", len(t.Columns))
	return t, nil
}
