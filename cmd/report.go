package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/enctests/internal/config"
	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/otio"
	"github.com/smazurov/enctests/internal/report"
	"github.com/smazurov/enctests/internal/results"
)

// DefaultResultsFile is the result document read and written by default.
const DefaultResultsFile = "encoding-test-results.otio"

// ReportOptions for the report command.
type ReportOptions struct {
	TestConfigDir string `help:"Directory with .enctest files holding the reports section" default:"./test_configs" toml:"paths.test_config_dir" env:"TEST_CONFIG_DIR"`
	TemplateDir   string `help:"Directory templatefile names resolve against (default: test config dir)" toml:"report.template_dir" env:"REPORT_TEMPLATE_DIR"`
	Watch         bool   `help:"Re-render whenever a result document or test descriptor changes" toml:"report.watch" env:"REPORT_WATCH"`
}

// CreateReportCmd creates the report command.
func CreateReportCmd() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report [results.otio ...]",
		Short: "Render charts and an HTML page from result documents",
		Long: `Loads every result document given (default ` + DefaultResultsFile + `), ` +
			`and writes one image per graph plus one HTML file for each reports section of the test descriptors.`,
		RunE: func(c *cobra.Command, args []string) error {
			if err := config.LoadConfig(opts, c); err != nil {
				return err
			}
			docs := args
			if len(docs) == 0 {
				docs = []string{DefaultResultsFile}
			}
			for i, doc := range docs {
				docs[i] = results.DocumentPath(doc)
			}

			_, err := RunReport(docs, *opts)
			if errors.Is(err, report.ErrReportConfigMissing) {
				fmt.Fprintf(c.OutOrStdout(), "Unable to find a reports section in %s. Nothing to do.\n", opts.TestConfigDir)
				return nil
			}
			if err != nil || !opts.Watch {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return WatchReport(ctx, docs, *opts)
		},
	}
	if err := config.BindFlags(cmd, opts); err != nil {
		panic(err)
	}
	return cmd
}

// RunReport renders every report section against the documents and
// returns the files written.
func RunReport(docs []string, opts ReportOptions) ([]string, error) {
	logger := logging.GetLogger("report")

	catalog, err := descriptor.LoadTests(opts.TestConfigDir)
	if err != nil {
		if catalog == nil {
			return nil, err
		}
		logger.Warn("Some test descriptors were skipped", "error", err)
	}
	reports, err := report.Reports(catalog)
	if err != nil {
		return nil, err
	}

	colls := make([]*otio.Collection, 0, len(docs))
	for _, doc := range docs {
		coll, err := results.Load(doc)
		if err != nil {
			return nil, err
		}
		if coll == nil {
			logger.Warn("Result document not found", "file", doc)
			continue
		}
		colls = append(colls, coll)
	}
	ds := report.Collect(colls...)

	templateDir := opts.TemplateDir
	if templateDir == "" {
		templateDir = opts.TestConfigDir
	}
	gen := report.NewGenerator(report.GeneratorOptions{TemplateDir: templateDir})

	var written []string
	var errs []error
	for _, cfg := range reports {
		files, err := gen.Generate(cfg, ds)
		written = append(written, files...)
		if err != nil {
			errs = append(errs, fmt.Errorf("report %s: %w", cfg.Name, err))
		}
	}
	return written, errors.Join(errs...)
}

// WatchReport re-renders the reports whenever a document or a test
// descriptor changes, until ctx is done.
func WatchReport(ctx context.Context, docs []string, opts ReportOptions) error {
	logger := logging.GetLogger("report")

	paths := append([]string{opts.TestConfigDir}, docs...)
	w := config.NewWatcher(paths, func(string) ([]string, error) {
		return RunReport(docs, opts)
	}, logger,
		config.WithSuffix[[]string](descriptor.TestSuffix),
		config.WithErrorHandler[[]string](func(err error) {
			logger.Error("Report update failed", "error", err)
		}),
	)
	w.OnReload(func(files []string) {
		logger.Info("Reports updated", "files", len(files))
	})
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to watch: %w", err)
	}
	defer w.Stop()

	logger.Info("Watching for changes", "paths", paths)
	<-ctx.Done()
	return nil
}
