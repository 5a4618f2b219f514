// Package pipeline runs load → filter → export for one dashboard request.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tyler180/nfl-rushing-stats/internal/export"
	"github.com/tyler180/nfl-rushing-stats/internal/season"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// Loader is satisfied by *season.Loader.
type Loader interface {
	Load(ctx context.Context, year int) (stats.Table, error)
}

// Request is one user selection. Nil sets take their defaults; an empty
// non-nil set selects nothing.
type Request struct {
	Year      int
	Teams     stats.Set
	Positions stats.Set
}

// View is everything a shell needs to render one request.
type View struct {
	Year        int
	Table       stats.Table // filtered
	Rows        int
	Cols        int
	TeamOptions []string // sorted unique Tm of the loaded season
	Positions   []string // position universe offered to the user
	Selection   stats.Selection
	Artifact    export.Artifact
	Error       string
}

// Dimension is the summary line shown above the table.
func (v View) Dimension() string {
	return fmt.Sprintf("Data Dimension: %d rows and %d columns.", v.Rows, v.Cols)
}

func (v View) NoData() bool { return v.Rows == 0 }

type Pipeline struct {
	loader Loader
	logger *slog.Logger
}

func New(l Loader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{loader: l, logger: logger}
}

// Run never fails outright: load errors land in View.Error with an empty table.
func (p *Pipeline) Run(ctx context.Context, req Request) View {
	v := View{Year: req.Year, Positions: append([]string(nil), stats.DefaultPositions...)}

	t, err := p.loader.Load(ctx, req.Year)
	if err != nil {
		v.Error = season.Message(err)
		t = stats.Table{}
	}
	v.TeamOptions = t.Unique(stats.ColTeam)

	sel := stats.DefaultSelection(t)
	if req.Teams != nil {
		sel.Teams = req.Teams
	}
	if req.Positions != nil {
		sel.Positions = req.Positions
	}
	v.Selection = sel

	v.Table = sel.Apply(t)
	v.Rows, v.Cols = v.Table.Shape()

	a, err := export.Export(v.Table)
	if err != nil {
		p.logger.ErrorContext(ctx, "pipeline: export failed", "year", req.Year, "err", err)
		if v.Error == "" {
			v.Error = err.Error()
		}
	}
	v.Artifact = a
	return v
}
