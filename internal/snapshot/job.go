// Package snapshot refreshes stored season tables and their published CSVs.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tyler180/nfl-rushing-stats/internal/config"
	"github.com/tyler180/nfl-rushing-stats/internal/export"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// Event is the Lambda payload. Empty fields fall back to config.
type Event struct {
	Mode    string `json:"mode"`    // snapshot | publish
	Seasons string `json:"seasons"` // "2019" | "2015-2019" | "2017,2019"
}

const (
	ModeSnapshot = "snapshot" // store table and publish CSV
	ModePublish  = "publish"  // publish CSV only
)

type Loader interface {
	Load(ctx context.Context, year int) (stats.Table, error)
}

type Writer interface {
	Set(ctx context.Context, year int, t stats.Table) error
}

type Publisher interface {
	Publish(ctx context.Context, year int, a export.Artifact) (string, error)
}

// Catalog makes a published season queryable.
type Catalog interface {
	Register(ctx context.Context, year int, t stats.Table) error
}

// Job loads each season fresh and fans it out to storage and S3.
// Writer, Publisher and Catalog are optional; Catalog runs only after a
// successful publish.
type Job struct {
	Loader    Loader
	Writer    Writer
	Publisher Publisher
	Catalog   Catalog
	Logger    *slog.Logger
}

type Result struct {
	Seasons    int
	Rows       int
	Stored     int
	Published  []string
	Registered int
	Failed     []int
}

func (r Result) String() string {
	return fmt.Sprintf("OK snapshot: seasons=%d rows=%d stored=%d published=%d registered=%d failed=%v",
		r.Seasons, r.Rows, r.Stored, len(r.Published), r.Registered, r.Failed)
}

// Run keeps going past a failed season and reports every failure at the end.
func (j *Job) Run(ctx context.Context, mode string, seasons []int) (Result, error) {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = ModeSnapshot
	}
	if mode != ModeSnapshot && mode != ModePublish {
		return Result{}, fmt.Errorf("unknown mode %q", mode)
	}

	var res Result
	var errs []error
	for _, year := range seasons {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		t, err := j.Loader.Load(ctx, year)
		if err != nil {
			res.Failed = append(res.Failed, year)
			errs = append(errs, fmt.Errorf("season %d: %w", year, err))
			continue
		}
		res.Seasons++
		res.Rows += t.Len()

		if mode == ModeSnapshot && j.Writer != nil {
			if err := j.Writer.Set(ctx, year, t); err != nil {
				res.Failed = append(res.Failed, year)
				errs = append(errs, fmt.Errorf("store season %d: %w", year, err))
				continue
			}
			res.Stored++
		}

		if j.Publisher != nil {
			a, err := export.Export(t)
			if err != nil {
				res.Failed = append(res.Failed, year)
				errs = append(errs, fmt.Errorf("export season %d: %w", year, err))
				continue
			}
			key, err := j.Publisher.Publish(ctx, year, a)
			if err != nil {
				res.Failed = append(res.Failed, year)
				errs = append(errs, fmt.Errorf("publish season %d: %w", year, err))
				continue
			}
			res.Published = append(res.Published, key)

			if j.Catalog != nil {
				if err := j.Catalog.Register(ctx, year, t); err != nil {
					res.Failed = append(res.Failed, year)
					errs = append(errs, fmt.Errorf("register season %d: %w", year, err))
					continue
				}
				res.Registered++
			}
		}
		logger.InfoContext(ctx, "snapshot: season done", "year", year, "rows", t.Len())
	}
	return res, errors.Join(errs...)
}

// Seasons resolves the event's season list against config.
func Seasons(e Event, cfg config.Config) ([]int, error) {
	if strings.TrimSpace(e.Seasons) == "" {
		return cfg.SnapshotSeasons(), nil
	}
	return config.ParseSeasons(e.Seasons)
}
