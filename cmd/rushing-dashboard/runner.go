package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/tyler180/nfl-rushing-stats/internal/app"
	"github.com/tyler180/nfl-rushing-stats/internal/config"
	"github.com/tyler180/nfl-rushing-stats/internal/pipeline"
	"github.com/tyler180/nfl-rushing-stats/internal/server"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// BuildFunc wires the pipeline for a resolved config.
type BuildFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger) (server.Runner, func() error, error)

// Runner holds dependencies for CLI commands and provides one method per action.
type Runner struct {
	output    io.Writer
	logOutput io.Writer
	build     BuildFunc
}

type RunnerOpts struct {
	Output    io.Writer
	LogOutput io.Writer
	Build     BuildFunc
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Build == nil {
		opts.Build = buildStack
	}
	return &Runner{output: opts.Output, logOutput: opts.LogOutput, build: opts.Build}
}

func buildStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (server.Runner, func() error, error) {
	s, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return s.Pipeline, s.Close, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, showCommand, exportCommand, yearsCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func (r *Runner) setup(cmd *cli.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := config.NewLogger(r.logOutput, cfg.Debug)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	run, closeFn, err := r.build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	addr := cfg.Addr
	if a := cmd.String("addr"); a != "" {
		addr = a
	}
	srv := server.New(run, server.Options{
		Years:       cfg.YearOptions(),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})
	return srv.ListenAndServe(ctx, addr)
}

// view resolves the selection flags and runs the pipeline once.
func (r *Runner) view(ctx context.Context, cmd *cli.Command) (pipeline.View, error) {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return pipeline.View{}, err
	}

	req := pipeline.Request{Year: cfg.Years.Max}
	if cmd.IsSet("year") {
		req.Year = int(cmd.Int("year"))
	}
	if !cfg.YearAllowed(req.Year) {
		return pipeline.View{}, fmt.Errorf("year %d outside %d-%d", req.Year, cfg.Years.Min, cfg.Years.Max)
	}
	if cmd.IsSet("team") {
		req.Teams = joinSets(cmd.StringSlice("team"))
	}
	if cmd.IsSet("pos") {
		req.Positions = joinSets(cmd.StringSlice("pos"))
	}

	run, closeFn, err := r.build(ctx, cfg, logger)
	if err != nil {
		return pipeline.View{}, err
	}
	defer closeFn()
	return run.Run(ctx, req), nil
}

func joinSets(vals []string) stats.Set {
	out := stats.Set{}
	for _, v := range vals {
		for k := range stats.ParseSet(v) {
			out[k] = struct{}{}
		}
	}
	return out
}

func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	v, err := r.view(ctx, cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"year":      v.Year,
			"dimension": v.Dimension(),
			"table":     v.Table,
			"error":     v.Error,
		})
	}

	if err := r.writePlain("%s\n", v.Dimension()); err != nil {
		return err
	}
	switch {
	case v.Error != "":
		return r.writePlain("%s\n", v.Error)
	case v.NoData():
		return r.writePlain("No data available for the selected team(s) and position(s).\n")
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.output)
	header := make(table.Row, len(v.Table.Columns))
	for i, c := range v.Table.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for i := range v.Table.Rows {
		rec := v.Table.Record(i)
		row := make(table.Row, len(rec))
		for j, c := range rec {
			row[j] = c
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	v, err := r.view(ctx, cmd)
	if err != nil {
		return err
	}
	if v.Error != "" {
		return errors.New(v.Error)
	}
	path := cmd.String("output")
	if err := os.WriteFile(path, []byte(v.Artifact.CSV), 0o644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return r.writePlain("wrote %d rows to %s\n", v.Artifact.Rows, path)
}

func (r *Runner) Years(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := r.setup(cmd)
	if err != nil {
		return err
	}
	for _, y := range cfg.YearOptions() {
		if err := r.writePlain("%d\n", y); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
