package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyler180/nfl-rushing-stats/internal/export"
	"github.com/tyler180/nfl-rushing-stats/internal/season"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

type stubLoader struct {
	table stats.Table
	err   error
}

func (s stubLoader) Load(_ context.Context, year int) (stats.Table, error) {
	if s.err != nil {
		return stats.Table{}, &season.LoadError{Year: year, Err: s.err}
	}
	return s.table, nil
}

func cleaned() stats.Table {
	cols := []string{"Player", "Tm", "Age", "Pos", "Yds"}
	mk := func(cells ...string) stats.Row {
		r := stats.Row{}
		for i, c := range cols {
			r[c] = stats.Parse(cells[i])
		}
		return r
	}
	return stats.Table{Columns: cols, Rows: []stats.Row{
		mk("Derrick Henry*", "TEN", "25", "RB", "1540"),
		mk("Lamar Jackson*+", "BAL", "22", "QB", "1206"),
		mk("Ezekiel Elliott*", "DAL", "24", "RB", "1357"),
		mk("Taysom Hill", "NOR", "29", "0", "156"),
	}}
}

func TestRun_Defaults(t *testing.T) {
	v := New(stubLoader{table: cleaned()}, nil).Run(context.Background(), Request{Year: 2019})

	require.Empty(t, v.Error)
	require.Equal(t, []string{"BAL", "DAL", "NOR", "TEN"}, v.TeamOptions)
	require.Equal(t, []string{"RB", "QB", "WR", "FB", "TE"}, v.Positions)
	require.Equal(t, 3, v.Rows)
	require.Equal(t, 5, v.Cols)
	require.Equal(t, "Data Dimension: 3 rows and 5 columns.", v.Dimension())
	require.Equal(t, export.Filename, v.Artifact.Filename)

	back, err := export.Decode(v.Artifact)
	require.NoError(t, err)
	require.Equal(t, 3, back.Len())
}

func TestRun_Selection(t *testing.T) {
	p := New(stubLoader{table: cleaned()}, nil)

	v := p.Run(context.Background(), Request{Year: 2019, Teams: stats.NewSet("DAL", "BAL"), Positions: stats.NewSet("RB")})
	require.Equal(t, 1, v.Rows)
	require.Equal(t, "Ezekiel Elliott*", v.Table.Rows[0]["Player"].String())

	v = p.Run(context.Background(), Request{Year: 2019, Teams: stats.Set{}})
	require.True(t, v.NoData())
	require.Equal(t, 5, v.Cols)
	require.Equal(t, "Player,Tm,Age,Pos,Yds\n", v.Artifact.CSV)
}

func TestRun_LoadFailure(t *testing.T) {
	v := New(stubLoader{err: errors.New("unexpected status 503")}, nil).Run(context.Background(), Request{Year: 2019})

	require.Equal(t, "Error loading data: unexpected status 503", v.Error)
	require.True(t, v.NoData())
	require.Empty(t, v.TeamOptions)
	require.Empty(t, v.Artifact.CSV)
	require.Equal(t, "Data Dimension: 0 rows and 0 columns.", v.Dimension())
}
