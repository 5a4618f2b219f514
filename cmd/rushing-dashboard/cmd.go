package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a TOML configuration file",
		Sources: cli.EnvVars("RUSHING_CONFIG"),
	}
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.IntFlag{
			Name:    "year",
			Aliases: []string{"y"},
			Usage:   "Season to load (defaults to the newest offered)",
		},
		&cli.StringSliceFlag{
			Name:    "team",
			Aliases: []string{"t"},
			Usage:   "Team code(s), repeat or comma-separate; default all teams in the season",
		},
		&cli.StringSliceFlag{
			Name:    "pos",
			Aliases: []string{"p"},
			Usage:   "Position(s); default RB,QB,WR,FB,TE",
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP dashboard",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides ADDR)",
			},
		},
		Action: r.Serve,
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the filtered rushing table",
		Flags: append(selectionFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the view as JSON",
			},
		),
		Action: r.Show,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the filtered table to a CSV file",
		Flags: append(selectionFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
				Value:   "playerstats.csv",
			},
		),
		Action: r.Export,
	}
}

func yearsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "years",
		Usage:  "List the offered seasons, newest first",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Years,
	}
}
