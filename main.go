package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/enctests/cmd"
	"github.com/smazurov/enctests/internal/config"
	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/results"
)

// errRunFailed makes the process exit non-zero after the document is written.
var errRunFailed = errors.New("one or more encodes failed")

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"enctests.toml" persistent:"true"`

	// Paths
	SourceFolder  string `help:"Folder with .source descriptors and the media they point at" default:"./sources" toml:"paths.source_folder" env:"SOURCE_FOLDER"`
	TestConfigDir string `help:"Folder with .enctest descriptors" default:"./test_configs" toml:"paths.test_config_dir" env:"TEST_CONFIG_DIR"`
	EncodedFolder string `help:"Where encoded outputs are written" default:"./encoded" toml:"paths.encoded_folder" env:"ENCODED_FOLDER"`
	Output        string `help:"Result document (.otio is added when missing)" short:"o" default:"encoding-test-results.otio" toml:"paths.output" env:"OUTPUT"`

	// Tools
	FFmpegBin  string `help:"Encoder binary" flag:"ffmpeg-bin" default:"ffmpeg" toml:"tools.ffmpeg_bin" env:"FFMPEG_BIN"`
	FFprobeBin string `help:"Probe binary used by --prep-tests" flag:"ffprobe-bin" default:"ffprobe" toml:"tools.ffprobe_bin" env:"FFPROBE_BIN"`

	// Run settings
	PrepTests   bool     `help:"Write .source descriptors for undescribed media in the source folder, then exit" toml:"run.prep_tests" env:"PREP_TESTS"`
	EncodeAll   bool     `help:"Encode every pair, even those with a current result" toml:"run.encode_all" env:"ENCODE_ALL"`
	Jobs        int      `help:"Number of encodes run at once" short:"j" default:"1" toml:"run.jobs" env:"JOBS"`
	Only        []string `help:"Run only these tests" toml:"run.only" env:"ONLY"`
	FailOnError bool     `help:"Exit with status 1 when any encode failed" toml:"run.fail_on_error" env:"FAIL_ON_ERROR"`
	MetricsFile string   `help:"Write Prometheus textfile metrics here at the end of the run" toml:"metrics.file" env:"METRICS_FILE"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL" persistent:"true"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT" persistent:"true"`
	LoggingJournal bool   `help:"Also log to the systemd journal when available" toml:"logging.journal" env:"LOGGING_JOURNAL" persistent:"true"`
	LoggingEncoder string `help:"Encoder logging level" default:"info" toml:"logging.encoder" env:"LOGGING_ENCODER" persistent:"true"`
	LoggingFFmpeg  string `help:"Encoder output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG" persistent:"true"`
}

func main() {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "enctests",
		Short: "Run encoding regression tests and record the results",
		Long: `Encodes every source described in the source folder with every test described in the test config dir, ` +
			`and records timing, size and arguments per tool version in an OTIO result document.`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			if loadErr := config.LoadConfig(opts, c); loadErr != nil {
				return loadErr
			}

			// Module levels from the config file, flags for the known ones
			loggingConfig := config.LoadLoggingConfig(opts.Config)
			loggingConfig.Level = opts.LoggingLevel
			loggingConfig.Format = opts.LoggingFormat
			loggingConfig.Journal = opts.LoggingJournal
			loggingConfig.Modules["encoder"] = opts.LoggingEncoder
			loggingConfig.Modules["ffmpeg"] = opts.LoggingFFmpeg
			logging.Initialize(loggingConfig)
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
	if err := config.BindFlags(root, opts); err != nil {
		slog.Error("Invalid options", "error", err)
		os.Exit(1)
	}

	root.AddCommand(cmd.CreateReportCmd())
	root.AddCommand(cmd.CreateVersionCmd())
	root.AddCommand(cmd.CreateUpdateCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *Options) error {
	logger := logging.GetLogger("main")

	if opts.PrepTests {
		written, err := cmd.RunPrep(ctx, opts.SourceFolder, opts.FFprobeBin)
		if err != nil {
			return err
		}
		logger.Info("Source preparation finished", "written", len(written))
		return nil
	}

	summary, err := cmd.RunEncode(ctx, cmd.EncodeConfig{
		SourceFolder:  opts.SourceFolder,
		TestConfigDir: opts.TestConfigDir,
		EncodedFolder: opts.EncodedFolder,
		Output:        opts.Output,
		FFmpegBin:     opts.FFmpegBin,
		EncodeAll:     opts.EncodeAll,
		Jobs:          opts.Jobs,
		Only:          opts.Only,
		MetricsFile:   opts.MetricsFile,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	for _, f := range summary.Failures {
		logger.Error("Encode failed", "clip", f.ClipName, "test", f.TestName, "exit_code", f.ExitCode)
	}
	if opts.FailOnError && summary.Failed() {
		logger.Error("Run had failures", "failed", len(summary.Failures), "document", results.DocumentPath(opts.Output))
		return errRunFailed
	}
	return nil
}
