package encoder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/events"
	"github.com/smazurov/enctests/internal/mediaref"
	"github.com/smazurov/enctests/internal/otio"
)

// fakeEncoder prints a version, fails when any argument mentions "fail",
// exits without output on "nooutput" and otherwise writes its last argument.
const fakeEncoder = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 9.9-test Copyright (c) nobody"
  exit 0
fi
for a in "$@"; do
  case "$a" in
    *fail*) echo "[error] forced failure" >&2; exit 3 ;;
    nooutput) exit 0 ;;
  esac
done
for a in "$@"; do last="$a"; done
echo "$@" > "$last.args"
echo "[info] encoding" >&2
printf 'encoded-bytes' > "$last"
`

func writeFakeEncoder(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(fakeEncoder), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClip(t *testing.T, dir string) *otio.Clip {
	t.Helper()
	src := filepath.Join(dir, "a.mov")
	if err := os.WriteFile(src, []byte("source"), 0o644); err != nil {
		t.Fatal(err)
	}
	ref, err := mediaref.Build(src, 24, 48)
	if err != nil {
		t.Fatal(err)
	}
	clip := otio.NewClip("a", ref)
	rng := otio.NewTimeRange(otio.NewRationalTime(0, 24), otio.NewRationalTime(48, 24))
	clip.SourceRange = &rng
	clip.Metadata.SourceInfo = &otio.SourceInfo{Path: "a.mov", Rate: 24, Duration: 48, InputArgs: "-r 24"}
	return clip
}

type recordingObserver struct {
	encoded, failed, skipped []string
}

func (o *recordingObserver) ObserveEncode(_, test, _ string, _ float64, _ int64) {
	o.encoded = append(o.encoded, test)
}
func (o *recordingObserver) ObserveFailure(_, test string) { o.failed = append(o.failed, test) }
func (o *recordingObserver) ObserveSkip(_, test string)    { o.skipped = append(o.skipped, test) }

func newExecutor(t *testing.T, bin, outDir string, obs Observer, bus *events.Bus) *Executor {
	t.Helper()
	exec, err := NewExecutor(ExecutorOptions{
		Config: Config{
			FFmpegBin:   bin,
			OutputDir:   outDir,
			ToolVersion: "ffmpeg_version_9.9-test",
		},
		EventBus: bus,
		Observer: obs,
		RunID:    "run-1",
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}
	return exec
}

func TestRunOne(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "encoded")
	clip := newClip(t, dir)
	obs := &recordingObserver{}
	bus := events.New()
	completed := make(chan events.EncodeCompletedEvent, 1)
	unsub := bus.Subscribe(func(e events.EncodeCompletedEvent) { completed <- e })
	defer unsub()

	exec := newExecutor(t, writeFakeEncoder(t), outDir, obs, bus)
	test := descriptor.EncodeTestDescriptor{
		Name:         "test_h264",
		EncodingArgs: "-c:v libx264 -preset slow",
		Suffix:       ".mp4",
		Description:  "baseline",
	}

	ref, err := exec.RunOne(context.Background(), clip, test)
	if err != nil {
		t.Fatalf("RunOne failed: %v", err)
	}

	wantOut := filepath.Join(outDir, "a-test_h264.mp4")
	if got := ref.LocalPath(""); got != wantOut {
		t.Errorf("expected output %s, got %s", wantOut, got)
	}
	if ref.Kind() != otio.KindExternalFile {
		t.Errorf("expected external file reference, got %s", ref.Kind())
	}
	if d := ref.Info().AvailableRange.Duration.ToFrames(); d != 48 {
		t.Errorf("expected 48 frame range, got %d", d)
	}

	res, ok := ref.Info().Metadata.Lookup("ffmpeg_version_9.9-test", "test_h264")
	if !ok {
		t.Fatal("expected result under tool version and test name")
	}
	if res.EncodeTime < 0 {
		t.Errorf("expected non-negative encode time, got %v", res.EncodeTime)
	}
	if res.EncodeArguments != "-c:v libx264 -preset slow" {
		t.Errorf("unexpected encode arguments %q", res.EncodeArguments)
	}
	if res.FilesizeBytes != int64(len("encoded-bytes")) {
		t.Errorf("expected %d bytes, got %d", len("encoded-bytes"), res.FilesizeBytes)
	}
	if res.Filesize != "13 B" {
		t.Errorf("expected filesize 13 B, got %q", res.Filesize)
	}
	if res.RunID != "run-1" || res.Description != "baseline" {
		t.Errorf("unexpected provenance %+v", res)
	}

	// The argument vector is decode args, input, frame limit, encode args, output.
	argsLine, err := os.ReadFile(wantOut + ".args")
	if err != nil {
		t.Fatal(err)
	}
	want := "-hide_banner -loglevel level+info -r 24 -i " + filepath.Join(dir, "a.mov") +
		" -vframes 48 -c:v libx264 -preset slow -y " + wantOut
	if got := strings.TrimSpace(string(argsLine)); got != want {
		t.Errorf("expected args\n%s\ngot\n%s", want, got)
	}

	// The clip itself is untouched.
	if _, ok := clip.Reference("test_h264"); ok {
		t.Error("RunOne must not modify the clip")
	}

	if len(obs.encoded) != 1 || obs.encoded[0] != "test_h264" {
		t.Errorf("expected one observed encode, got %v", obs.encoded)
	}
	ev := <-completed
	if ev.Clip != "a" || ev.Test != "test_h264" || ev.Output != wantOut {
		t.Errorf("unexpected completed event %+v", ev)
	}
}

func TestRunOneNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	clip := newClip(t, dir)
	obs := &recordingObserver{}
	exec := newExecutor(t, writeFakeEncoder(t), filepath.Join(dir, "out"), obs, nil)

	_, err := exec.RunOne(context.Background(), clip, descriptor.EncodeTestDescriptor{
		Name:         "test_broken",
		EncodingArgs: "-c:v fail",
		Suffix:       ".mp4",
	})

	var failure *EncodeFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected EncodeFailure, got %v", err)
	}
	if failure.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", failure.ExitCode)
	}
	if failure.ClipName != "a" || failure.TestName != "test_broken" {
		t.Errorf("unexpected failure identity %+v", failure)
	}
	if len(failure.Output) == 0 || !strings.Contains(failure.Output[len(failure.Output)-1], "forced failure") {
		t.Errorf("expected encoder output tail, got %v", failure.Output)
	}
	if len(obs.failed) != 1 {
		t.Errorf("expected one observed failure, got %v", obs.failed)
	}
}

func TestRunOneMissingOutput(t *testing.T) {
	dir := t.TempDir()
	clip := newClip(t, dir)
	exec := newExecutor(t, writeFakeEncoder(t), filepath.Join(dir, "out"), nil, nil)

	_, err := exec.RunOne(context.Background(), clip, descriptor.EncodeTestDescriptor{
		Name:         "test_silent",
		EncodingArgs: "nooutput",
		Suffix:       ".mp4",
	})

	var failure *EncodeFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected EncodeFailure, got %v", err)
	}
	if failure.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", failure.ExitCode)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

func TestRunOneMissingBinary(t *testing.T) {
	dir := t.TempDir()
	clip := newClip(t, dir)
	exec := newExecutor(t, filepath.Join(dir, "no-such-encoder"), filepath.Join(dir, "out"), nil, nil)

	_, err := exec.RunOne(context.Background(), clip, descriptor.EncodeTestDescriptor{Name: "test_x", Suffix: ".mp4"})
	var failure *EncodeFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected EncodeFailure, got %v", err)
	}
	if failure.Err == nil {
		t.Error("expected start error to be wrapped")
	}
}

func TestIsCurrent(t *testing.T) {
	dir := t.TempDir()
	clip := newClip(t, dir)
	exec := newExecutor(t, writeFakeEncoder(t), filepath.Join(dir, "out"), nil, nil)
	test := descriptor.EncodeTestDescriptor{Name: "test_h264", Suffix: ".mp4"}

	if exec.IsCurrent(clip, test) {
		t.Error("expected no current result before encoding")
	}

	ref, err := exec.RunOne(context.Background(), clip, test)
	if err != nil {
		t.Fatal(err)
	}
	clip.PutReference(test.Name, ref)

	if !exec.IsCurrent(clip, test) {
		t.Error("expected current result after encoding")
	}

	other := newExecutor(t, writeFakeEncoder(t), filepath.Join(dir, "out"), nil, nil)
	other.cfg.ToolVersion = "ffmpeg_version_10.0"
	if other.IsCurrent(clip, test) {
		t.Error("a result from another tool version is not current")
	}

	if err := os.Remove(ref.LocalPath("")); err != nil {
		t.Fatal(err)
	}
	if exec.IsCurrent(clip, test) {
		t.Error("expected result without output file to be stale")
	}
}

func TestNewExecutorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing binary", Config{ToolVersion: "v", OutputDir: "out"}},
		{"missing version", Config{FFmpegBin: "ffmpeg", OutputDir: "out"}},
		{"missing output dir", Config{FFmpegBin: "ffmpeg", ToolVersion: "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExecutor(ExecutorOptions{Config: tt.cfg}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProbeVersion(t *testing.T) {
	version, err := ProbeVersion(context.Background(), writeFakeEncoder(t))
	if err != nil {
		t.Fatalf("ProbeVersion failed: %v", err)
	}
	if version != "ffmpeg_version_9.9-test" {
		t.Errorf("expected ffmpeg_version_9.9-test, got %s", version)
	}

	if _, err := ProbeVersion(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing binary")
	}
}
