// Package app wires config into the fetch → cache → pipeline stack shared by
// the dashboard and the snapshot job.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tyler180/nfl-rushing-stats/internal/cache"
	"github.com/tyler180/nfl-rushing-stats/internal/config"
	"github.com/tyler180/nfl-rushing-stats/internal/pfr"
	"github.com/tyler180/nfl-rushing-stats/internal/pipeline"
	"github.com/tyler180/nfl-rushing-stats/internal/season"
	"github.com/tyler180/nfl-rushing-stats/internal/store"
)

// Stack is the wired dependency set. Close releases backend connections.
type Stack struct {
	Client   *pfr.Client
	Cache    cache.Cache
	Loader   *season.Loader
	Pipeline *pipeline.Pipeline
	DDB      *dynamodb.Client // nil unless an AWS backend is configured
	S3       *s3.Client
	Athena   *athena.Client

	closers []func() error
}

func (s *Stack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func NewClient(cfg config.Config, logger *slog.Logger) *pfr.Client {
	c := pfr.NewClient()
	c.BaseURL = cfg.PFR.BaseURL
	c.HTTP = &http.Client{Timeout: cfg.HTTPTimeout()}
	c.Retry = cfg.RetryPolicy()
	c.Logger = logger
	return c
}

// Build wires the stack. AWS clients are created only when the cache backend
// or the snapshot settings need them.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{Client: NewClient(cfg, logger)}

	needAWS := cfg.Cache.Backend == config.CacheDynamoDB || cfg.SnapshotTable != "" ||
		cfg.ExportBucket != "" || cfg.Athena.Database != ""
	if needAWS {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		s.DDB = dynamodb.NewFromConfig(awsCfg)
		s.S3 = s3.NewFromConfig(awsCfg)
		s.Athena = athena.NewFromConfig(awsCfg)
	}

	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, client, err := cache.NewRedisFromURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		s.Cache = rc
	case config.CacheDynamoDB:
		s.Cache = store.NewSnapshots(s.DDB, cfg.SnapshotTable)
	default:
		s.Cache = cache.NewMemory()
	}
	logger.Debug("app: cache backend", "backend", cfg.Cache.Backend)

	s.Loader = season.NewLoader(s.Client, s.Cache, logger)
	s.Pipeline = pipeline.New(s.Loader, logger)
	return s, nil
}
