// Package season loads one year's cleaned rushing table, memoized per year.
package season

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tyler180/nfl-rushing-stats/internal/cache"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// ErrMissingColumns means the scraped table lacks a column filtering needs.
var ErrMissingColumns = errors.New("required columns missing")

// Required must survive cleaning for the table to be usable.
var Required = []string{stats.ColTeam, stats.ColPos, stats.ColAge}

// LoadError wraps every fetch or parse failure for a year.
type LoadError struct {
	Year int
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Error loading data: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Fetcher returns the raw first table of a season's rushing page.
type Fetcher interface {
	FetchRushingTable(ctx context.Context, year int) (stats.Table, error)
}

// DefaultLoadTimeout bounds a shared load once it is detached from the
// request that started it.
const DefaultLoadTimeout = 2 * time.Minute

// Loader fetches, cleans and validates a season, then caches the result.
// Failures are never cached, so the next request retries.
type Loader struct {
	fetch   Fetcher
	cache   cache.Cache
	logger  *slog.Logger
	group   singleflight.Group
	timeout time.Duration
}

func NewLoader(f Fetcher, c cache.Cache, logger *slog.Logger) *Loader {
	if c == nil {
		c = cache.NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetch: f, cache: c, logger: logger, timeout: DefaultLoadTimeout}
}

// Load returns the cleaned table for year. On failure it returns an empty
// table and a *LoadError.
func (l *Loader) Load(ctx context.Context, year int) (stats.Table, error) {
	t, ok, err := l.cache.Get(ctx, year)
	if err != nil {
		// a broken shared cache degrades to fetching
		l.logger.WarnContext(ctx, "season: cache get failed", "year", year, "err", err)
	}
	if ok {
		return t, nil
	}

	// The flight ignores the starting caller's cancellation; each caller
	// stops waiting on its own ctx.
	ch := l.group.DoChan(strconv.Itoa(year), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.load(fctx, year)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return stats.Table{}, &LoadError{Year: year, Err: ctx.Err()}
	case res = <-ch:
	}
	if res.Err != nil {
		l.logger.ErrorContext(ctx, "season: load failed", "year", year, "err", res.Err)
		return stats.Table{}, &LoadError{Year: year, Err: res.Err}
	}
	if res.Shared {
		l.logger.DebugContext(ctx, "season: joined in-flight load", "year", year)
	}
	return res.Val.(stats.Table), nil
}

func (l *Loader) load(ctx context.Context, year int) (stats.Table, error) {
	// a flight that just finished may have filled the cache after our miss
	if t, ok, err := l.cache.Get(ctx, year); err == nil && ok {
		return t, nil
	}
	raw, err := l.fetch.FetchRushingTable(ctx, year)
	if err != nil {
		return stats.Table{}, err
	}
	t := stats.Clean(raw)
	if err := Validate(t); err != nil {
		return stats.Table{}, err
	}
	if err := l.cache.Set(ctx, year, t); err != nil {
		l.logger.WarnContext(ctx, "season: cache set failed", "year", year, "err", err)
	}
	l.logger.InfoContext(ctx, "season: loaded", "year", year, "rows", t.Len(), "cols", len(t.Columns))
	return t, nil
}

// Validate checks the columns filtering and display depend on.
func Validate(t stats.Table) error {
	var missing []string
	for _, c := range Required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Message is the user-facing text for a load error, empty for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Error()
	}
	return (&LoadError{Err: err}).Error()
}
