package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/naosoccer/stack/app"
	"github.com/naosoccer/stack/config"
	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/robots/fake"
)

// RunAction runs the cyclers until the process is interrupted.
func RunAction(c *cli.Context) (err error) {
	if !c.Bool(flagFake) {
		return errors.New("no hardware interface is built in, run with --fake")
	}
	logger := logging.NewLogger("nao")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("nao")
	}
	if path := c.Path(flagLogFile); path != "" {
		file := logging.NewFileAppender(path)
		defer func() {
			err = multierr.Append(err, file.Close())
		}()
		logger.AddAppender(file)
	}
	logging.ReplaceGlobal(logger)
	patterns, err := parseLogPatterns(c.StringSlice(flagLogLevel))
	if err != nil {
		return err
	}
	if err := logging.UpdateLogLevels(patterns, logger); err != nil {
		return err
	}

	hardware := fake.NewRobot(nil, fake.DefaultOptions())
	root := c.Path(flagParametersDir)
	document, _, err := config.Load(root, hardware.IDs())
	if err != nil {
		return err
	}
	opts := []app.Option{app.WithParameterWatcher(root)}
	if address := c.String(flagListen); address != "" {
		opts = append(opts, app.WithListenAddress(address))
	}
	runtime, err := app.New(hardware, document, logger, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Bool(flagDebug) {
		ctx = logging.EnableDebugMode(ctx, "")
	}
	err = runtime.Run(ctx)
	printStatistics(c.App.Writer, runtime.Cyclers())
	return err
}

// parseLogPatterns reads pattern=level pairs.
func parseLogPatterns(values []string) ([]logging.LoggerPatternConfig, error) {
	patterns := make([]logging.LoggerPatternConfig, 0, len(values))
	for _, value := range values {
		pattern, level, ok := strings.Cut(value, "=")
		if !ok || pattern == "" {
			return nil, errors.Errorf("log level %q is not pattern=level", value)
		}
		patterns = append(patterns, logging.LoggerPatternConfig{Pattern: pattern, Level: level})
	}
	return patterns, nil
}

func printStatistics(w io.Writer, cyclers []*cycler.Cycler) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Cycler", "Cycles", "Skipped", "Mean", "P95", "Max"})
	for _, c := range cyclers {
		statistics := c.Statistics()
		t.AppendRow(table.Row{c.Name(), statistics.Cycles, statistics.Skipped, statistics.Mean, statistics.P95, statistics.Max})
	}
	t.Render()
}

func idsFrom(c *cli.Context) robot.IDs {
	return robot.IDs{BodyID: c.String(flagBody), HeadID: c.String(flagHead)}
}

// ShowParametersAction lists the layers of a robot and prints its merged document.
func ShowParametersAction(c *cli.Context) error {
	return showParameters(c.App.Writer, c.Path(flagParametersDir), idsFrom(c))
}

func showParameters(w io.Writer, root string, ids robot.IDs) error {
	merged, found, err := config.Load(root, ids)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Scope", "File", "Values"})
	for _, layer := range config.Layers(ids, config.LocationFor(ids.HeadID)) {
		values := "-"
		if document, ok := found[layer.Scope]; ok {
			values = fmt.Sprint(len(leaves("", document)))
		}
		t.AppendRow(table.Row{layer.Scope, layer.Path, values})
	}
	t.Render()

	encoded, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}

// DiffParametersAction compares a document with the merged parameters and optionally saves the
// changed values into one layer.
func DiffParametersAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected the path of one document")
	}
	scope, err := config.ParseScope(c.String(flagScope))
	if err != nil {
		return err
	}
	return diffParameters(c.App.Writer, c.Path(flagParametersDir), idsFrom(c), c.Args().First(), scope, c.Bool(flagSave))
}

func diffParameters(w io.Writer, root string, ids robot.IDs, candidatePath string, scope config.Scope, save bool) error {
	//nolint:gosec
	data, err := os.ReadFile(candidatePath)
	if err != nil {
		return err
	}
	var candidate map[string]any
	if err := json.Unmarshal(data, &candidate); err != nil {
		return errors.Wrapf(err, "parsing %s", candidatePath)
	}
	merged, _, err := config.Load(root, ids)
	if err != nil {
		return err
	}
	updated := config.Clone(merged)
	config.Merge(updated, candidate)
	var parameters app.Parameters
	if err := config.Decode(updated, &parameters); err != nil {
		return errors.Wrap(err, "invalid parameters")
	}

	changes, err := config.DiffDocuments(merged, updated, true)
	if err != nil {
		return err
	}
	if changes.Equal {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}
	if _, err := fmt.Fprintln(w, changes.String()); err != nil {
		return err
	}

	current := leaves("", merged)
	patch := leaves("", changes.Patch)
	paths := lo.Keys(patch)
	slices.Sort(paths)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Path", "Current", "Updated"})
	for _, path := range paths {
		t.AppendRow(table.Row{path, current[path], patch[path]})
	}
	t.Render()

	if !save {
		return nil
	}
	if _, err := config.Save(root, ids, scope, updated); err != nil {
		return err
	}
	file, err := scope.Path(ids, config.LocationFor(ids.HeadID))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "saved %d values to %s\n", len(paths), filepath.Join(root, file))
	return err
}

// SchemaParametersAction prints the JSON schema the merged document must satisfy.
func SchemaParametersAction(c *cli.Context) error {
	return printSchema(c.App.Writer)
}

func printSchema(w io.Writer) error {
	encoded, err := json.MarshalIndent(app.ParametersSchema(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}

// leaves flattens a document into dotted paths.
func leaves(prefix string, document map[string]any) map[string]any {
	result := map[string]any{}
	for key, value := range document {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if object, ok := value.(map[string]any); ok {
			for inner, leaf := range leaves(path, object) {
				result[inner] = leaf
			}
			continue
		}
		result[path] = value
	}
	return result
}
