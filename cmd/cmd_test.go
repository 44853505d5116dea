package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/otio"
	"github.com/smazurov/enctests/internal/results"
)

const fakeFFmpeg = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 7.1-test Copyright (c) the FFmpeg developers"
  exit 0
fi
for a in "$@"; do
  case "$a" in
    *broken*) echo "[error] broken encoder" >&2; exit 1 ;;
  esac
done
for a in "$@"; do last="$a"; done
printf 'encoded' > "$last"
`

type workspace struct {
	dir     string
	sources string
	tests   string
	encoded string
	output  string
	bin     string
}

func newWorkspace(t *testing.T, tests string) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:     dir,
		sources: filepath.Join(dir, "sources"),
		tests:   filepath.Join(dir, "test_configs"),
		encoded: filepath.Join(dir, "encoded"),
		output:  filepath.Join(dir, "results"),
		bin:     filepath.Join(dir, "ffmpeg"),
	}
	ws.write(t, ws.bin, fakeFFmpeg, 0o755)
	ws.write(t, filepath.Join(ws.sources, "a.mov"), "movie", 0o644)
	ws.write(t, filepath.Join(ws.sources, "b.mov"), "movie", 0o644)
	ws.write(t, filepath.Join(ws.sources, "a.source"), "[SOURCE_INFO]\npath = a.mov\nrate = 24\nduration = 48\n", 0o644)
	ws.write(t, filepath.Join(ws.sources, "b.source"), "[SOURCE_INFO]\npath = b.mov\nrate = 25\nduration = 50\n", 0o644)
	ws.write(t, filepath.Join(ws.tests, "codecs.enctest"), tests, 0o644)
	return ws
}

func (ws *workspace) write(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func (ws *workspace) config() EncodeConfig {
	return EncodeConfig{
		SourceFolder:  ws.sources,
		TestConfigDir: ws.tests,
		EncodedFolder: ws.encoded,
		Output:        ws.output,
		FFmpegBin:     ws.bin,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const twoTests = `
[test_h264]
encoding_args = -c:v libx264 -crf 23
suffix = .mp4
description = baseline

[test_h265]
encoding_args = -c:v libx265
    -crf 28
suffix = .mp4
`

func TestRunEncode(t *testing.T) {
	ws := newWorkspace(t, twoTests)
	cfg := ws.config()
	cfg.MetricsFile = filepath.Join(ws.dir, "metrics.prom")

	summary, err := RunEncode(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunEncode failed: %v", err)
	}
	if summary.Encoded != 4 || summary.Skipped != 0 || summary.Failed() {
		t.Errorf("expected 4 encodes, got %+v", summary)
	}

	coll, err := results.Load(ws.output + results.DocumentSuffix)
	if err != nil || coll == nil {
		t.Fatalf("expected result document, got %v", err)
	}
	run := coll.Metadata.Run
	if run == nil || run.RunID != summary.RunID {
		t.Fatalf("expected run metadata for %s, got %+v", summary.RunID, run)
	}
	if len(run.ToolVersions) != 1 || run.ToolVersions[0] != "ffmpeg_version_7.1-test" {
		t.Errorf("unexpected tool versions %v", run.ToolVersions)
	}
	if run.Host == nil {
		t.Error("expected host info")
	}

	a, ok := coll.Find("a")
	if !ok {
		t.Fatal("expected clip a")
	}
	ref, ok := a.Reference("test_h265")
	if !ok {
		t.Fatal("expected test_h265 reference on clip a")
	}
	res, ok := ref.Info().Metadata.Lookup("ffmpeg_version_7.1-test", "test_h265")
	if !ok {
		t.Fatal("expected result under the probed version")
	}
	if res.EncodeArguments != "-c:v libx265 -crf 28" {
		t.Errorf("unexpected encode arguments %q", res.EncodeArguments)
	}
	if _, err := os.Stat(filepath.Join(ws.encoded, "a-test_h265.mp4")); err != nil {
		t.Errorf("expected encoded output: %v", err)
	}

	metrics, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("expected metrics file: %v", err)
	}
	if !strings.Contains(string(metrics), "enctests_last_run_timestamp_seconds") {
		t.Error("expected last run timestamp in metrics")
	}
}

func TestRunEncodeIncremental(t *testing.T) {
	ws := newWorkspace(t, twoTests)

	if _, err := RunEncode(context.Background(), ws.config()); err != nil {
		t.Fatal(err)
	}
	summary, err := RunEncode(context.Background(), ws.config())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Encoded != 0 || summary.Skipped != 4 {
		t.Errorf("expected every pair skipped, got %+v", summary)
	}

	cfg := ws.config()
	cfg.EncodeAll = true
	cfg.Only = []string{"test_h264"}
	summary, err = RunEncode(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Encoded != 2 {
		t.Errorf("expected 2 forced encodes, got %+v", summary)
	}

	coll, _ := results.Load(ws.output + results.DocumentSuffix)
	b, _ := coll.Find("b")
	if len(b.TestReferenceNames()) != 2 {
		t.Errorf("expected both test references kept, got %v", b.TestReferenceNames())
	}
}

func TestRunEncodeRecordsFailures(t *testing.T) {
	ws := newWorkspace(t, twoTests+`
[test_broken]
encoding_args = -c:v broken
suffix = .mp4
`)

	summary, err := RunEncode(context.Background(), ws.config())
	if err != nil {
		t.Fatalf("RunEncode failed: %v", err)
	}
	if len(summary.Failures) != 2 || summary.Encoded != 4 {
		t.Errorf("expected 4 encodes and 2 failures, got %+v", summary)
	}
	if f := summary.Failures[0]; f.TestName != "test_broken" || f.ExitCode != 1 {
		t.Errorf("unexpected failure %+v", f)
	}

	coll, _ := results.Load(ws.output + results.DocumentSuffix)
	a, _ := coll.Find("a")
	if _, ok := a.Reference("test_broken"); ok {
		t.Error("failed encodes must not be recorded")
	}
}

func TestRunEncodeErrors(t *testing.T) {
	ws := newWorkspace(t, twoTests)

	cfg := ws.config()
	cfg.FFmpegBin = filepath.Join(ws.dir, "missing-ffmpeg")
	if _, err := RunEncode(context.Background(), cfg); err == nil {
		t.Error("expected error for missing encoder")
	}

	cfg = ws.config()
	cfg.Only = []string{"test_nothing"}
	if _, err := RunEncode(context.Background(), cfg); err == nil {
		t.Error("expected error when no tests match")
	}

	cfg = ws.config()
	cfg.TestConfigDir = filepath.Join(ws.dir, "nope")
	if _, err := RunEncode(context.Background(), cfg); err == nil {
		t.Error("expected error for missing test config dir")
	}
}

func TestRunPrep(t *testing.T) {
	dir := t.TempDir()
	seq := filepath.Join(dir, "shot")
	if err := os.MkdirAll(seq, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"shot.0001.exr", "shot.0002.exr", "shot.0003.exr"} {
		if err := os.WriteFile(filepath.Join(seq, f), []byte("frame"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	written, err := RunPrep(context.Background(), dir, "ffprobe-not-needed")
	if err != nil {
		t.Fatalf("RunPrep failed: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("expected one descriptor, got %v", written)
	}
	src, err := descriptor.ParseSourceFile(written[0])
	if err != nil {
		t.Fatalf("expected a readable descriptor: %v", err)
	}
	if src.Path != "shot" || src.Duration != 3 || src.Rate != results.DefaultSequenceRate {
		t.Errorf("unexpected descriptor %+v", src)
	}
}

const reportTests = twoTests + `
[reports]
name = nightly
directory = %s
graphs = [
    {name: encode_time, type: bar, args: {x: media, y: encode_time, color: name}}
  ]
`

func TestRunReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	ws := newWorkspace(t, strings.Replace(reportTests, "%s", out, 1))
	if _, err := RunEncode(context.Background(), ws.config()); err != nil {
		t.Fatal(err)
	}

	doc := ws.output + results.DocumentSuffix
	written, err := RunReport([]string{doc}, ReportOptions{TestConfigDir: ws.tests})
	if err != nil {
		t.Fatalf("RunReport failed: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected chart and page, got %v", written)
	}
	html, err := os.ReadFile(filepath.Join(out, "nightly.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "nightly-encode_time.png") {
		t.Error("expected the page to reference the chart")
	}
	if _, err := os.Stat(filepath.Join(out, "nightly-encode_time.png")); err != nil {
		t.Errorf("expected chart file: %v", err)
	}
}

func TestReportCmdWithoutReportsSection(t *testing.T) {
	ws := newWorkspace(t, twoTests)

	cmd := CreateReportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--test-config-dir", ws.tests, filepath.Join(ws.dir, "missing")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if !strings.Contains(out.String(), "reports section") {
		t.Errorf("expected message about the missing section, got %q", out.String())
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := CreateVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"version"`) {
		t.Errorf("expected JSON build info, got %q", out.String())
	}
}

func TestResultDocumentOpensAsOTIO(t *testing.T) {
	ws := newWorkspace(t, twoTests)
	if _, err := RunEncode(context.Background(), ws.config()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(ws.output + results.DocumentSuffix)
	if err != nil {
		t.Fatal(err)
	}
	coll, err := otio.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("expected a valid document: %v", err)
	}
	if len(coll.Clips) != 2 {
		t.Errorf("expected 2 clips, got %d", len(coll.Clips))
	}
	if !strings.Contains(string(data), `"OTIO_SCHEMA"`) {
		t.Error("expected OTIO schema tags")
	}
}
