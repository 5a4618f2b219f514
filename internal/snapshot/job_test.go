package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyler180/nfl-rushing-stats/internal/config"
	"github.com/tyler180/nfl-rushing-stats/internal/export"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type loaderFunc func(ctx context.Context, year int) (stats.Table, error)

func (f loaderFunc) Load(ctx context.Context, year int) (stats.Table, error) { return f(ctx, year) }

type memWriter struct{ tables map[int]stats.Table }

func (m *memWriter) Set(_ context.Context, year int, t stats.Table) error {
	m.tables[year] = t
	return nil
}

type memPublisher struct {
	keys []string
	csv  map[int]string
	err  error
}

func (p *memPublisher) Publish(_ context.Context, year int, a export.Artifact) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.csv[year] = a.CSV
	key := fmt.Sprintf("rushing/season=%d/%s", year, a.Filename)
	p.keys = append(p.keys, key)
	return key, nil
}

func table(n int) stats.Table {
	t := stats.Table{Columns: []string{"Player", "Tm", "Age", "Pos"}}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, stats.Row{
			"Player": stats.String(fmt.Sprintf("P%d", i)),
			"Tm":     stats.String("DAL"),
			"Age":    stats.String("24"),
			"Pos":    stats.String("RB"),
		})
	}
	return t
}

func TestRun_StoresAndPublishes(t *testing.T) {
	w := &memWriter{tables: map[int]stats.Table{}}
	p := &memPublisher{csv: map[int]string{}}
	j := &Job{
		Loader:    loaderFunc(func(_ context.Context, y int) (stats.Table, error) { return table(y - 2016), nil }),
		Writer:    w,
		Publisher: p,
		Logger:    quiet,
	}

	res, err := j.Run(context.Background(), "", []int{2017, 2018, 2019})
	require.NoError(t, err)
	require.Equal(t, 3, res.Seasons)
	require.Equal(t, 6, res.Rows)
	require.Equal(t, 3, res.Stored)
	require.Equal(t, []string{
		"rushing/season=2017/playerstats.csv",
		"rushing/season=2018/playerstats.csv",
		"rushing/season=2019/playerstats.csv",
	}, res.Published)
	require.Len(t, w.tables[2019].Rows, 3)
	require.Equal(t, "Player,Tm,Age,Pos\nP0,DAL,24,RB\n", p.csv[2017])
	require.Equal(t, "OK snapshot: seasons=3 rows=6 stored=3 published=3 registered=0 failed=[]", res.String())
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	w := &memWriter{tables: map[int]stats.Table{}}
	j := &Job{
		Loader: loaderFunc(func(_ context.Context, y int) (stats.Table, error) {
			if y == 2018 {
				return stats.Table{}, errors.New("unexpected status 503")
			}
			return table(1), nil
		}),
		Writer: w,
		Logger: quiet,
	}

	res, err := j.Run(context.Background(), ModeSnapshot, []int{2017, 2018, 2019})
	require.ErrorContains(t, err, "season 2018")
	require.Equal(t, []int{2018}, res.Failed)
	require.Equal(t, 2, res.Stored)
	require.Contains(t, w.tables, 2019)
}

func TestRun_PublishModeSkipsWriter(t *testing.T) {
	w := &memWriter{tables: map[int]stats.Table{}}
	p := &memPublisher{csv: map[int]string{}, err: errors.New("AccessDenied")}
	j := &Job{Loader: loaderFunc(func(context.Context, int) (stats.Table, error) { return table(1), nil }), Writer: w, Publisher: p, Logger: quiet}

	res, err := j.Run(context.Background(), ModePublish, []int{2019})
	require.ErrorContains(t, err, "AccessDenied")
	require.Empty(t, w.tables)
	require.Equal(t, []int{2019}, res.Failed)

	_, err = j.Run(context.Background(), "materialize", []int{2019})
	require.ErrorContains(t, err, "unknown mode")
}

type memCatalog struct {
	rows map[int]int
	fail int
}

func (c *memCatalog) Register(_ context.Context, year int, t stats.Table) error {
	if year == c.fail {
		return errors.New("athena failed: HIVE_PARTITION_SCHEMA_MISMATCH")
	}
	c.rows[year] = t.Len()
	return nil
}

func TestRun_RegistersPublishedSeasons(t *testing.T) {
	p := &memPublisher{csv: map[int]string{}}
	c := &memCatalog{rows: map[int]int{}, fail: 2018}
	j := &Job{
		Loader:    loaderFunc(func(_ context.Context, y int) (stats.Table, error) { return table(y - 2016), nil }),
		Publisher: p,
		Catalog:   c,
		Logger:    quiet,
	}

	res, err := j.Run(context.Background(), ModePublish, []int{2017, 2018, 2019})
	require.ErrorContains(t, err, "register season 2018")
	require.Equal(t, map[int]int{2017: 1, 2019: 3}, c.rows)
	require.Equal(t, 2, res.Registered)
	require.Len(t, res.Published, 3)
	require.Equal(t, []int{2018}, res.Failed)

	// nothing published, nothing registered
	p.err = errors.New("AccessDenied")
	c.rows = map[int]int{}
	res, err = j.Run(context.Background(), ModePublish, []int{2019})
	require.Error(t, err)
	require.Empty(t, c.rows)
	require.Equal(t, 0, res.Registered)
}

func TestSeasons(t *testing.T) {
	cfg := config.Default()
	got, err := Seasons(Event{}, cfg)
	require.NoError(t, err)
	require.Equal(t, []int{2019}, got)

	got, err = Seasons(Event{Seasons: "2017-2019"}, cfg)
	require.NoError(t, err)
	require.Equal(t, []int{2017, 2018, 2019}, got)
}
