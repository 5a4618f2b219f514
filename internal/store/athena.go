package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

var errCountMismatch = errors.New("partition row count mismatch")

type CatalogOptions struct {
	Database  string
	Table     string
	Workgroup string
	OutputS3  string // query results, s3://bucket/prefix/
	Location  string // table root holding season=N/ folders
	Logger    *slog.Logger
}

// Catalog keeps an Athena table over the published CSVs, one partition per
// season. The table's columns come from the first season registered.
type Catalog struct {
	cl   AthenaAPI
	opts CatalogOptions
	poll time.Duration

	mu      sync.Mutex
	created bool
}

func NewCatalog(cl AthenaAPI, opts CatalogOptions) *Catalog {
	if opts.Workgroup == "" {
		opts.Workgroup = "primary"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if !strings.HasSuffix(opts.Location, "/") {
		opts.Location += "/"
	}
	return &Catalog{cl: cl, opts: opts, poll: time.Second}
}

// Register adds year's partition and checks Athena sees every row of t.
func (c *Catalog) Register(ctx context.Context, year int, t stats.Table) error {
	if err := c.EnsureTable(ctx, t.Columns); err != nil {
		return err
	}
	if err := c.AddPartition(ctx, year); err != nil {
		return err
	}
	n, err := c.CountRows(ctx, year)
	if err != nil {
		return err
	}
	if n != int64(t.Len()) {
		return fmt.Errorf("%w: season %d has %d rows in athena, %d published", errCountMismatch, year, n, t.Len())
	}
	c.opts.Logger.InfoContext(ctx, "athena: partition registered", "season", year, "rows", n)
	return nil
}

// EnsureTable creates the external table once per Catalog.
func (c *Catalog) EnsureTable(ctx context.Context, cols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.created {
		return nil
	}
	if _, err := c.ExecAndWait(ctx, c.createTableSQL(cols)); err != nil {
		return fmt.Errorf("create table %s: %w", c.opts.Table, err)
	}
	c.created = true
	return nil
}

func (c *Catalog) createTableSQL(cols []string) string {
	defs := make([]string, 0, len(cols))
	for _, name := range athenaColumns(cols) {
		defs = append(defs, fmt.Sprintf("  `%s` string", name))
	}
	return fmt.Sprintf("CREATE EXTERNAL TABLE IF NOT EXISTS `%s` (\n%s\n)\n"+
		"PARTITIONED BY (season int)\n"+
		"ROW FORMAT SERDE 'org.apache.hadoop.hive.serde2.OpenCSVSerde'\n"+
		"LOCATION '%s'\n"+
		"TBLPROPERTIES ('skip.header.line.count'='1')",
		c.opts.Table, strings.Join(defs, ",\n"), c.opts.Location)
}

func (c *Catalog) AddPartition(ctx context.Context, year int) error {
	sql := fmt.Sprintf("ALTER TABLE `%s` ADD IF NOT EXISTS PARTITION (season=%d) LOCATION '%sseason=%d/'",
		c.opts.Table, year, c.opts.Location, year)
	if _, err := c.ExecAndWait(ctx, sql); err != nil {
		return fmt.Errorf("add partition season=%d: %w", year, err)
	}
	return nil
}

func (c *Catalog) CountRows(ctx context.Context, year int) (int64, error) {
	sql := fmt.Sprintf(`SELECT COUNT(*) AS c FROM "%s" WHERE season = %d`, c.opts.Table, year)
	exec, err := c.ExecAndWait(ctx, sql)
	if err != nil {
		return 0, err
	}
	gr, err := c.cl.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: exec.QueryExecutionId,
	})
	if err != nil {
		return 0, fmt.Errorf("get results: %w", err)
	}
	if len(gr.ResultSet.Rows) < 2 || len(gr.ResultSet.Rows[1].Data) < 1 || gr.ResultSet.Rows[1].Data[0].VarCharValue == nil {
		return 0, errors.New("unexpected COUNT(*) result shape")
	}
	var n int64
	if _, err := fmt.Sscan(*gr.ResultSet.Rows[1].Data[0].VarCharValue, &n); err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return n, nil
}

// ExecAndWait starts sql and polls until it settles.
func (c *Catalog) ExecAndWait(ctx context.Context, sql string) (*athenatypes.QueryExecution, error) {
	start, err := c.cl.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{Database: aws.String(c.opts.Database)},
		ResultConfiguration:   &athenatypes.ResultConfiguration{OutputLocation: aws.String(c.opts.OutputS3)},
		WorkGroup:             aws.String(c.opts.Workgroup),
	})
	if err != nil {
		return nil, fmt.Errorf("start query: %w", err)
	}
	qid := aws.ToString(start.QueryExecutionId)
	c.opts.Logger.DebugContext(ctx, "athena: query started", "qid", qid)

	tick := time.NewTicker(c.poll)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
		}
		ge, err := c.cl.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{QueryExecutionId: aws.String(qid)})
		if err != nil {
			return nil, fmt.Errorf("get query execution: %w", err)
		}
		qe := ge.QueryExecution
		switch qe.Status.State {
		case athenatypes.QueryExecutionStateSucceeded:
			return qe, nil
		case athenatypes.QueryExecutionStateFailed:
			return nil, errors.New("athena failed: " + aws.ToString(qe.Status.StateChangeReason))
		case athenatypes.QueryExecutionStateCancelled:
			return nil, errors.New("athena cancelled")
		}
	}
}

// athenaColumns maps PFR headers to Hive names: "Y/A" -> y_a, "1D" -> c1d.
func athenaColumns(cols []string) []string {
	seen := map[string]bool{"season": true}
	out := make([]string, len(cols))
	for i, col := range cols {
		var b strings.Builder
		for _, r := range strings.ToLower(col) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		}
		name := strings.Trim(b.String(), "_")
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		if name[0] >= '0' && name[0] <= '9' {
			name = "c" + name
		}
		base := name
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
