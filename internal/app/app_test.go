package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyler180/nfl-rushing-stats/internal/cache"
	"github.com/tyler180/nfl-rushing-stats/internal/config"
	"github.com/tyler180/nfl-rushing-stats/internal/pipeline"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuild_MemoryEndToEnd(t *testing.T) {
	page, err := os.ReadFile("../pfr/testdata/rushing_2019.html")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.PFR.BaseURL = srv.URL

	s, err := Build(context.Background(), cfg, quiet)
	require.NoError(t, err)
	defer s.Close()
	require.IsType(t, &cache.Memory{}, s.Cache)
	require.Nil(t, s.DDB)

	v := s.Pipeline.Run(context.Background(), pipeline.Request{
		Year:      2019,
		Teams:     stats.NewSet("DAL"),
		Positions: stats.NewSet("RB"),
	})
	require.Empty(t, v.Error)
	require.Equal(t, 2, v.Rows)
	require.Equal(t, "Data Dimension: 2 rows and 14 columns.", v.Dimension())
}

func TestBuild_Redis(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheRedis
	cfg.Cache.RedisURL = "redis://localhost:6379/0"

	s, err := Build(context.Background(), cfg, quiet)
	require.NoError(t, err)
	require.IsType(t, &cache.Redis{}, s.Cache)
	require.NoError(t, s.Close())

	cfg.Cache.RedisURL = "not-a-url"
	_, err = Build(context.Background(), cfg, quiet)
	require.Error(t, err)
}
