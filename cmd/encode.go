// Package cmd holds the enctests subcommands and the encode run they share
// with the root command.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/encoder"
	"github.com/smazurov/enctests/internal/events"
	"github.com/smazurov/enctests/internal/hostinfo"
	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/metrics"
	"github.com/smazurov/enctests/internal/otio"
	"github.com/smazurov/enctests/internal/results"
	"github.com/smazurov/enctests/internal/version"
)

// EncodeConfig is everything an encode run needs.
type EncodeConfig struct {
	SourceFolder  string
	TestConfigDir string
	EncodedFolder string
	Output        string // result document, .otio added when missing
	FFmpegBin     string
	EncodeAll     bool
	Jobs          int
	Only          []string // restrict to these test names
	MetricsFile   string   // Prometheus textfile, skipped when empty

	// Logger for the run. If nil, uses the "main" module logger.
	Logger *slog.Logger
}

// RunEncode runs every test against every source and writes the result
// document. Per-item config and encode failures are logged and counted;
// the returned error is for problems that stop the run as a whole.
func RunEncode(ctx context.Context, cfg EncodeConfig) (*results.MatrixSummary, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger("main")
	}
	started := time.Now()

	sources, err := descriptor.LoadSources(cfg.SourceFolder)
	if err != nil {
		if len(sources) == 0 {
			return nil, fmt.Errorf("failed to load sources: %w", err)
		}
		logger.Warn("Some source descriptors were skipped", "error", err)
	}
	catalog, err := descriptor.LoadTests(cfg.TestConfigDir)
	if err != nil {
		if catalog == nil || len(catalog.Tests) == 0 {
			return nil, fmt.Errorf("failed to load tests: %w", err)
		}
		logger.Warn("Some test descriptors were skipped", "error", err)
	}
	if len(cfg.Only) > 0 {
		catalog = catalog.Only(cfg.Only...)
	}
	if len(catalog.Tests) == 0 {
		return nil, errors.New("no encode tests to run")
	}
	logger.Info("Loaded encode tests", "tests", catalog.TestNames())

	toolVersion, err := encoder.ProbeVersion(ctx, cfg.FFmpegBin)
	if err != nil {
		return nil, err
	}
	logger.Info("Encoder found", "bin", cfg.FFmpegBin, "version", toolVersion)

	output := results.DocumentPath(cfg.Output)
	prior, err := results.Load(output)
	if err != nil {
		return nil, err
	}
	fresh, err := results.Prepare(sources, cfg.SourceFolder)
	if err != nil {
		if fresh == nil || len(fresh.Clips) == 0 {
			return nil, err
		}
		logger.Warn("Some sources could not be prepared", "error", err)
	}
	coll := results.MergeInto(prior, fresh)

	runID := results.NewRunID()
	bus := events.New()
	defer subscribeProgress(bus, logger)()

	recorder := metrics.NewRecorder()
	exec, err := encoder.NewExecutor(encoder.ExecutorOptions{
		Config: encoder.Config{
			FFmpegBin:   cfg.FFmpegBin,
			OutputDir:   cfg.EncodedFolder,
			ToolVersion: toolVersion,
		},
		EventBus: bus,
		Observer: recorder,
		RunID:    runID,
	})
	if err != nil {
		return nil, err
	}

	summary, runErr := results.RunMatrix(ctx, coll, catalog.Tests, exec, results.Options{
		EncodeAll: cfg.EncodeAll,
		Jobs:      cfg.Jobs,
		Clips:     results.ClipNames(fresh),
		RunID:     runID,
		EventBus:  bus,
	})

	coll.Metadata.Run = &otio.RunInfo{
		RunID:          runID,
		HarnessVersion: version.Version,
		StartedAt:      started.UTC().Format(time.RFC3339),
		ToolVersions:   []string{toolVersion},
		Host:           hostinfo.Collect(ctx),
	}
	if err := results.Save(output, coll); err != nil {
		return summary, err
	}
	logger.Info("Results written", "file", output)

	if cfg.MetricsFile != "" {
		recorder.MarkRunFinished(float64(time.Now().Unix()))
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}
	return summary, runErr
}

// RunPrep writes .source descriptors for undescribed assets in the source
// folder, probing files with ffprobeBin.
func RunPrep(ctx context.Context, sourceFolder, ffprobeBin string) ([]string, error) {
	return results.PrepSources(ctx, sourceFolder, func(ctx context.Context, path string) (encoder.MediaInfo, error) {
		return encoder.ProbeMedia(ctx, ffprobeBin, path)
	})
}

// subscribeProgress logs encode lifecycle events and returns the
// unsubscribe function.
func subscribeProgress(bus *events.Bus, logger *slog.Logger) func() {
	unsubs := []func(){
		bus.Subscribe(func(ev events.EncodeStartedEvent) {
			logger.Info("Encoding", "clip", ev.Clip, "test", ev.Test)
		}),
		bus.Subscribe(func(ev events.EncodeCompletedEvent) {
			logger.Info("Encoded", "clip", ev.Clip, "test", ev.Test,
				"seconds", ev.EncodeTime, "bytes", ev.FilesizeBytes)
		}),
		bus.Subscribe(func(ev events.EncodeFailedEvent) {
			logger.Warn("Encode failed", "clip", ev.Clip, "test", ev.Test,
				"exit_code", ev.ExitCode, "error", ev.Error)
		}),
		bus.Subscribe(func(ev events.RunCompletedEvent) {
			logger.Info("Run finished", "run_id", ev.RunID, "encoded", ev.Encoded,
				"skipped", ev.Skipped, "failed", ev.Failed, "seconds", ev.Duration)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
