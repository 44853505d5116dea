package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/events"
	"github.com/smazurov/enctests/internal/ffmpeg"
	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/mediaref"
	"github.com/smazurov/enctests/internal/otio"
	"github.com/smazurov/enctests/internal/process"
)

// DefaultTailLines is how many output lines are kept for failure reports.
const DefaultTailLines = 20

// DefaultGlobalArgs are placed right after the encoder binary.
// level+info prefixes each log line with its level for ParseLogLevel.
var DefaultGlobalArgs = []string{"-hide_banner", "-loglevel", "level+info"}

// Config holds the encoder settings for a run.
type Config struct {
	FFmpegBin   string
	OutputDir   string
	GlobalArgs  []string
	ToolVersion string // metadata key for results, see ProbeVersion
	TailLines   int
}

// Observer receives encode outcomes synchronously, e.g. for metrics.
type Observer interface {
	ObserveEncode(clip, test, toolVersion string, seconds float64, bytes int64)
	ObserveFailure(clip, test string)
	ObserveSkip(clip, test string)
}

// ExecutorOptions configures a new Executor.
type ExecutorOptions struct {
	Config Config

	// EventBus receives encode lifecycle events (optional).
	EventBus *events.Bus

	// Observer is told about every outcome (optional).
	Observer Observer

	// RunID is stamped on every result (optional).
	RunID string

	// Logger for executor operations. If nil, uses the "encoder" module logger.
	Logger *slog.Logger
}

// Executor runs encode tests. It is safe for concurrent use as long as no
// two calls write the same clip at the same time.
type Executor struct {
	cfg          Config
	bus          *events.Bus
	observer     Observer
	runID        string
	logger       *slog.Logger
	ffmpegLogger *slog.Logger
	now          func() time.Time
}

// NewExecutor validates the config and creates an Executor.
func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	cfg := opts.Config
	if cfg.FFmpegBin == "" {
		return nil, errors.New("encoder binary is required")
	}
	if cfg.ToolVersion == "" {
		return nil, errors.New("tool version is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	dir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	cfg.OutputDir = dir
	if cfg.GlobalArgs == nil {
		cfg.GlobalArgs = DefaultGlobalArgs
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = DefaultTailLines
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("encoder")
	}

	return &Executor{
		cfg:          cfg,
		bus:          opts.EventBus,
		observer:     opts.Observer,
		runID:        opts.RunID,
		logger:       logger,
		ffmpegLogger: logging.GetLogger("ffmpeg"),
		now:          time.Now,
	}, nil
}

// ToolVersion returns the version key results are recorded under.
func (e *Executor) ToolVersion() string {
	return e.cfg.ToolVersion
}

// OutputFor returns where the encode of test on clip is written.
func (e *Executor) OutputFor(clip *otio.Clip, test descriptor.EncodeTestDescriptor) (string, error) {
	src := clip.MediaReference()
	if src == nil {
		return "", fmt.Errorf("clip %s has no source media", clip.Name)
	}
	input, symbol := SourcePath(src)
	return OutputPath(e.cfg.OutputDir, input, symbol, test.Name, test.Suffix), nil
}

// IsCurrent reports whether clip already holds a result for test under the
// current tool version and its output file still exists.
func (e *Executor) IsCurrent(clip *otio.Clip, test descriptor.EncodeTestDescriptor) bool {
	ref, ok := clip.Reference(test.Name)
	if !ok {
		return false
	}
	meta := ref.Info().Metadata
	if _, ok := meta.Lookup(e.cfg.ToolVersion, test.Name); !ok {
		return false
	}
	_, err := os.Stat(ref.LocalPath(""))
	return err == nil
}

// Skip records that test was not run on clip.
func (e *Executor) Skip(clip *otio.Clip, test descriptor.EncodeTestDescriptor, reason string) {
	e.logger.Info("Skipping encode", "clip", clip.Name, "test", test.Name, "reason", reason)
	if e.observer != nil {
		e.observer.ObserveSkip(clip.Name, test.Name)
	}
	e.bus.Publish(events.EncodeSkippedEvent{Clip: clip.Name, Test: test.Name, Reason: reason})
}

// RunOne encodes clip with test and returns a reference to the output with
// the result recorded in its metadata. The clip is not modified.
func (e *Executor) RunOne(ctx context.Context, clip *otio.Clip, test descriptor.EncodeTestDescriptor) (otio.MediaReference, error) {
	src := clip.MediaReference()
	if src == nil {
		return nil, e.fail(&EncodeFailure{TestName: test.Name, ClipName: clip.Name, ExitCode: -1,
			Err: errors.New("clip has no source media")})
	}

	input, symbol := SourcePath(src)
	output := OutputPath(e.cfg.OutputDir, input, symbol, test.Name, test.Suffix)

	rate, duration := sourceTiming(clip, src)
	frames := duration
	if clip.SourceRange != nil {
		frames = clip.SourceRange.Duration.ToFrames()
	}

	var decodeArgs string
	if si := clip.Metadata.SourceInfo; si != nil {
		decodeArgs = si.InputArgs
	}

	args, err := ffmpeg.BuildEncodeCommand(ffmpeg.EncodeJob{
		Bin:        e.cfg.FFmpegBin,
		GlobalArgs: e.cfg.GlobalArgs,
		DecodeArgs: decodeArgs,
		Input:      input,
		Frames:     frames,
		EncodeArgs: test.EncodingArgs,
		Output:     output,
	})
	if err != nil {
		return nil, e.fail(&EncodeFailure{TestName: test.Name, ClipName: clip.Name, ExitCode: -1, Err: err})
	}

	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return nil, e.fail(&EncodeFailure{TestName: test.Name, ClipName: clip.Name, ExitCode: -1,
			Err: fmt.Errorf("failed to create output directory: %w", err)})
	}

	tail := logging.NewRingBuffer(e.cfg.TailLines)
	proc := process.NewProcessWithOutput(clip.Name+"/"+test.Name, args, e.logger, tail)
	proc.SetLogParser(e.ffmpegLogger.With("clip", clip.Name, "test", test.Name), parseEncoderLine)

	e.logger.Info("Running encode", "clip", clip.Name, "test", test.Name)
	e.logger.Debug("Encoder command", "command", proc.Command())
	e.bus.Publish(events.EncodeStartedEvent{
		Clip:        clip.Name,
		Test:        test.Name,
		ToolVersion: e.cfg.ToolVersion,
		Output:      output,
		Timestamp:   e.now().UTC().Format(time.RFC3339),
	})

	started := time.Now()
	code, runErr := proc.Run(ctx)
	elapsed := time.Since(started)

	failure := &EncodeFailure{
		TestName: test.Name,
		ClipName: clip.Name,
		Command:  proc.Command(),
		ExitCode: code,
		Output:   tail.Messages(),
	}
	switch {
	case runErr != nil:
		failure.Err = runErr
		return nil, e.fail(failure)
	case code != 0:
		return nil, e.fail(failure)
	}

	info, err := os.Stat(output)
	if err != nil {
		failure.Err = fmt.Errorf("encoder wrote no output: %w", err)
		return nil, e.fail(failure)
	}

	ref, err := mediaref.Build(output, rate, duration)
	if err != nil {
		failure.Err = err
		return nil, e.fail(failure)
	}

	seconds := roundTo(elapsed.Seconds(), 4)
	res := ref.Info().Metadata.Result(e.cfg.ToolVersion, test.Name)
	res.EncodeTime = seconds
	res.EncodeArguments = test.EncodingArgs
	res.Filesize = humanize.IBytes(uint64(info.Size()))
	res.FilesizeBytes = info.Size()
	res.Description = test.Description
	res.RunID = e.runID
	res.EncodedAt = e.now().UTC().Format(time.RFC3339)

	e.logger.Info("Encode finished", "clip", clip.Name, "test", test.Name,
		"seconds", seconds, "size", res.Filesize)
	if e.observer != nil {
		e.observer.ObserveEncode(clip.Name, test.Name, e.cfg.ToolVersion, seconds, info.Size())
	}
	e.bus.Publish(events.EncodeCompletedEvent{
		Clip:          clip.Name,
		Test:          test.Name,
		ToolVersion:   e.cfg.ToolVersion,
		Output:        output,
		EncodeTime:    seconds,
		FilesizeBytes: info.Size(),
		Timestamp:     res.EncodedAt,
	})
	return ref, nil
}

func (e *Executor) fail(f *EncodeFailure) error {
	e.logger.Error("Encode failed", "clip", f.ClipName, "test", f.TestName,
		"exit_code", f.ExitCode, "error", f.Err)
	for _, line := range f.Output {
		e.logger.Debug("Encoder output", "clip", f.ClipName, "test", f.TestName, "line", line)
	}
	if e.observer != nil {
		e.observer.ObserveFailure(f.ClipName, f.TestName)
	}
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	e.bus.Publish(events.EncodeFailedEvent{
		Clip:      f.ClipName,
		Test:      f.TestName,
		ExitCode:  f.ExitCode,
		Error:     msg,
		Timestamp: e.now().UTC().Format(time.RFC3339),
	})
	return f
}

// sourceTiming returns the rate and duration outputs are described with.
func sourceTiming(clip *otio.Clip, src otio.MediaReference) (rate float64, duration int) {
	if si := clip.Metadata.SourceInfo; si != nil && si.Rate > 0 {
		return si.Rate, si.Duration
	}
	if r := src.Info().AvailableRange; r != nil {
		return r.Duration.Rate, r.Duration.ToFrames()
	}
	return 24, 0
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// parseEncoderLine maps an encoder output line onto a log level.
func parseEncoderLine(line string) (slog.Level, string) {
	level, msg := ffmpeg.ParseLogLevel(line)
	return ffmpeg.SlogLevel(level), msg
}
