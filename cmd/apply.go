package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"alpaca/internal/cli"
	"alpaca/internal/manifest"
	"alpaca/internal/resource"
	"alpaca/internal/template"
	"alpaca/internal/watcher"
	"alpaca/pkg/logging"
)

type applyOptions struct {
	file        string
	check       bool
	sets        []string
	valuesFiles []string
	watch       bool
	debounce    time.Duration
}

func newApplyCmd(flags *cli.CommandFlags) *cobra.Command {
	opts := &applyOptions{}

	kinds := make([]string, 0, len(resource.Kinds()))
	for _, k := range resource.Kinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:   "apply <" + strings.Join(kinds, "|") + "> -f FILE",
		Short: "Bring a resource to the state described in a manifest",
		Long: `Reconcile one ALPACA Operator resource with a manifest.

The manifest is rendered as a template first. Values given with --set and
--values are available as .Values, and the sprig functions (env, default,
upper, ...) can be used. An apiConnection block in the manifest overrides
the selected context.

Examples:
  alpaca apply group -f group.yaml
  alpaca apply system -f system.yaml --check
  alpaca apply agent -f agent.yaml --set hostname=agent01
  alpaca apply commandset -f commands.yaml --watch`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := resource.ParseKind(args[0])
			if err != nil {
				return &cli.UsageError{Message: err.Error()}
			}
			executor, err := newExecutor(cmd, flags)
			if err != nil {
				return err
			}
			if opts.watch {
				return watchApply(cmd.Context(), executor, kind, opts)
			}
			_, err = applyOnce(cmd.Context(), executor, kind, opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Manifest file (YAML or JSON)")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Report what would change without writing")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "Template value as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.valuesFiles, "values", nil, "YAML file with template values (repeatable)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-apply whenever the manifest changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watcher.DefaultDebounce, "Quiet period before a change is applied in watch mode")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// values merges the values files in order, then the --set assignments.
func (o *applyOptions) values() (map[string]any, error) {
	var layers []map[string]any
	for _, path := range o.valuesFiles {
		v, err := template.LoadValuesFile(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, v)
	}
	sets, err := template.ParseSet(o.sets)
	if err != nil {
		return nil, &cli.UsageError{Message: err.Error()}
	}
	layers = append(layers, sets)
	return template.MergeValues(layers...)
}

func applyOnce(ctx context.Context, executor *cli.Executor, kind resource.Kind, opts *applyOptions) (*resource.Result, error) {
	values, err := opts.values()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(opts.file, values)
	if err != nil {
		return nil, err
	}

	c, conn, err := executor.Client(m.Connection)
	if err != nil {
		return nil, err
	}
	rec, err := resource.For(kind, c, resource.Options{Check: opts.check})
	if err != nil {
		return nil, err
	}

	logging.Debug("Apply", "Reconciling %s from %s (check=%t)", kind, opts.file, opts.check)

	var result *resource.Result
	err = executor.Spin(fmt.Sprintf("Reconciling %s %s", kind, filepath.Base(opts.file)), func() error {
		var err error
		result, err = rec.Reconcile(ctx, m.Params)
		return err
	})
	if err != nil {
		return nil, cli.DescribeError(err, conn.BaseURL())
	}
	return result, executor.Formatter().FormatResult(result)
}

// watchApply applies once, then again after every change of the manifest
// or a values file, until interrupted. Failed runs are reported and the
// watch goes on.
func watchApply(ctx context.Context, executor *cli.Executor, kind resource.Kind, opts *applyOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := watcher.NewMetrics()
	run := func() {
		result, err := applyOnce(ctx, executor, kind, opts)
		if err != nil {
			metrics.RecordFailure(opts.file, err)
			executor.Errorf("%s\n", cli.FormatError(err))
			return
		}
		metrics.RecordSuccess(opts.file, result.Changed)
	}

	w := watcher.New(opts.debounce)
	for _, path := range append([]string{opts.file}, opts.valuesFiles...) {
		if err := w.Add(path); err != nil {
			return err
		}
	}

	run()
	logging.Info("Apply", "Watching %s for changes, press Ctrl+C to stop", opts.file)

	err := w.Run(ctx, func(ev watcher.Event) {
		if ev.Operation == watcher.OperationRemove {
			logging.Warn("Apply", "%s was removed, waiting for it to come back", ev.Path)
			return
		}
		run()
	})

	s := metrics.Summary()
	executor.Errorf("Watch stopped after %d runs: %d changed, %d failed (%.0f%% successful)\n",
		s.Attempts, s.Changes, s.Failures, metrics.SuccessRate())
	return err
}
