// Package main runs the robot software and inspects its parameters.
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/naosoccer/stack/logging"
)

const (
	// Flags.
	flagParametersDir = "parameters-dir"
	flagListen        = "listen"
	flagDebug         = "debug"
	flagLogLevel      = "log-level"
	flagLogFile       = "log-file"
	flagFake          = "fake"
	flagBody          = "body"
	flagHead          = "head"
	flagScope         = "scope"
	flagSave          = "save"
)

func main() {
	parametersDir := &cli.PathFlag{
		Name:  flagParametersDir,
		Value: "etc/parameters",
		Usage: "root `DIR` of the parameter documents",
	}
	body := &cli.StringFlag{
		Name:  flagBody,
		Value: "fake_body",
		Usage: "body id selecting the body layers",
	}
	head := &cli.StringFlag{
		Name:  flagHead,
		Value: "fake_head",
		Usage: "head id selecting the head and location layers",
	}

	cliApp := &cli.App{
		Name:            "nao",
		Usage:           "run and configure the soccer robot software",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run all cyclers until interrupted",
				Flags: []cli.Flag{
					parametersDir,
					&cli.StringFlag{
						Name:  flagListen,
						Usage: "serve the communication endpoint on `ADDRESS`",
					},
					&cli.BoolFlag{
						Name:    flagDebug,
						Aliases: []string{"vvv"},
						Usage:   "enable debug logging",
					},
					&cli.StringSliceFlag{
						Name:  flagLogLevel,
						Usage: "set the level of matching loggers, e.g. nao.Control.*=debug",
					},
					&cli.PathFlag{
						Name:  flagLogFile,
						Usage: "also write logs to the rotated file `PATH`",
					},
					&cli.BoolFlag{
						Name:  flagFake,
						Usage: "run against the simulated robot",
					},
				},
				Action: RunAction,
			},
			{
				Name:            "parameters",
				Usage:           "work with the layered parameter documents",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "list the layers of a robot and print the merged document",
						Flags:  []cli.Flag{parametersDir, body, head},
						Action: ShowParametersAction,
					},
					{
						Name:      "diff",
						Usage:     "compare a document with the merged parameters of a robot",
						ArgsUsage: "<document.json>",
						Flags: []cli.Flag{
							parametersDir, body, head,
							&cli.StringFlag{
								Name:  flagScope,
								Value: "head",
								Usage: "layer the changes are saved to",
							},
							&cli.BoolFlag{
								Name:  flagSave,
								Usage: "write the changed values into the layer of --scope",
							},
						},
						Action: DiffParametersAction,
					},
					{
						Name:   "schema",
						Usage:  "print the JSON schema of the merged parameter document",
						Action: SchemaParametersAction,
					},
				},
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		logging.Global().Fatal(err)
	}
}
