package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/nfl-rushing-stats/internal/app"
	"github.com/tyler180/nfl-rushing-stats/internal/config"
	"github.com/tyler180/nfl-rushing-stats/internal/snapshot"
	"github.com/tyler180/nfl-rushing-stats/internal/store"
)

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, raw json.RawMessage) (string, error) {
	var e snapshot.Event
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e); err != nil {
			return "", fmt.Errorf("decode event: %w", err)
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		return "", err
	}
	logger := config.NewLogger(nil, cfg.Debug)

	seasons, err := snapshot.Seasons(e, cfg)
	if err != nil {
		return "", err
	}

	// The job always refetches, so it must not read through a stored snapshot.
	cfg.Cache.Backend = config.CacheMemory
	stack, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return "", err
	}
	defer stack.Close()

	job := &snapshot.Job{
		Loader: stack.Loader,
		Logger: logger,
	}
	if cfg.SnapshotTable != "" {
		job.Writer = store.NewSnapshots(stack.DDB, cfg.SnapshotTable)
	}
	if cfg.ExportBucket != "" {
		pub := store.NewPublisher(stack.S3, cfg.ExportBucket, cfg.ExportPrefix)
		job.Publisher = pub
		if cfg.Athena.Database != "" {
			job.Catalog = store.NewCatalog(stack.Athena, store.CatalogOptions{
				Database:  cfg.Athena.Database,
				Table:     cfg.Athena.Table,
				Workgroup: cfg.Athena.Workgroup,
				OutputS3:  cfg.Athena.Output,
				Location:  pub.Root(),
				Logger:    logger,
			})
		}
	}
	if job.Writer == nil && job.Publisher == nil {
		return "", errors.New("nothing to do: set SNAPSHOT_TABLE_NAME and/or EXPORT_BUCKET")
	}

	res, err := job.Run(ctx, e.Mode, seasons)
	logger.Info(res.String(), "published", res.Published)
	return res.String(), err
}
