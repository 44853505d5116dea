package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// runOptions mirrors the shape of the CLI options struct.
type runOptions struct {
	Config string `help:"Config file path" short:"c" persistent:"true"`

	SourceFolder string   `help:"Source folder" default:"./sources" toml:"paths.source_folder" env:"SOURCE_FOLDER"`
	FFmpegBin    string   `help:"Encoder binary" flag:"ffmpeg-bin" default:"ffmpeg" toml:"tools.ffmpeg_bin" env:"FFMPEG_BIN"`
	EncodeAll    bool     `help:"Re-encode everything" toml:"run.encode_all" env:"ENCODE_ALL"`
	Jobs         int      `help:"Parallel encodes" short:"j" default:"1" toml:"run.jobs" env:"JOBS"`
	Only         []string `help:"Tests to run" toml:"run.only" env:"ONLY"`

	LoggingLevel string `help:"Logging level" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enctests.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const sampleConfig = `
[paths]
source_folder = "/media/sources"

[tools]
ffmpeg_bin = "/opt/ffmpeg/bin/ffmpeg"

[run]
encode_all = true
jobs = 4
only = ["test_h264", "test_prores"]

[logging]
level = "debug"
encoder = "warn"
report = "error"
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &runOptions{Config: writeConfig(t, sampleConfig)}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.SourceFolder != "/media/sources" {
		t.Errorf("expected source folder /media/sources, got %s", opts.SourceFolder)
	}
	if opts.FFmpegBin != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("expected ffmpeg bin from file, got %s", opts.FFmpegBin)
	}
	if !opts.EncodeAll {
		t.Error("expected encode_all to be true")
	}
	if opts.Jobs != 4 {
		t.Errorf("expected 4 jobs, got %d", opts.Jobs)
	}
	if want := []string{"test_h264", "test_prores"}; !reflect.DeepEqual(opts.Only, want) {
		t.Errorf("expected %v, got %v", want, opts.Only)
	}
	if opts.LoggingLevel != "debug" {
		t.Errorf("expected debug, got %s", opts.LoggingLevel)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("ENCTESTS_FFMPEG_BIN", "/usr/local/bin/ffmpeg")
	t.Setenv("ENCTESTS_JOBS", "2")
	t.Setenv("ENCTESTS_ONLY", " a , b ")
	t.Setenv("ENCTESTS_ENCODE_ALL", "false")

	opts := &runOptions{Config: writeConfig(t, sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.FFmpegBin != "/usr/local/bin/ffmpeg" {
		t.Errorf("expected env ffmpeg bin, got %s", opts.FFmpegBin)
	}
	if opts.Jobs != 2 {
		t.Errorf("expected 2 jobs from env, got %d", opts.Jobs)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(opts.Only, want) {
		t.Errorf("expected %v, got %v", want, opts.Only)
	}
	if opts.EncodeAll {
		t.Error("expected env to turn encode_all off")
	}
	if opts.SourceFolder != "/media/sources" {
		t.Errorf("expected source folder from file, got %s", opts.SourceFolder)
	}
}

func TestLoadConfigUnprefixedEnvIgnored(t *testing.T) {
	t.Setenv("FFMPEG_BIN", "/somewhere/else")

	opts := &runOptions{FFmpegBin: "ffmpeg"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.FFmpegBin != "ffmpeg" {
		t.Errorf("expected ffmpeg, got %s", opts.FFmpegBin)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	t.Setenv("ENCTESTS_JOBS", "2")

	opts := &runOptions{}
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	if err := BindFlags(cmd, opts); err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}
	cmd.SetArgs([]string{"-c", writeConfig(t, sampleConfig), "-j", "8", "--ffmpeg-bin", "/cli/ffmpeg"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Jobs != 8 {
		t.Errorf("expected 8 jobs from CLI, got %d", opts.Jobs)
	}
	if opts.FFmpegBin != "/cli/ffmpeg" {
		t.Errorf("expected CLI ffmpeg bin, got %s", opts.FFmpegBin)
	}
	if opts.SourceFolder != "/media/sources" {
		t.Errorf("expected source folder from file, got %s", opts.SourceFolder)
	}
}

func TestBindFlagsDefaults(t *testing.T) {
	opts := &runOptions{}
	cmd := &cobra.Command{Use: "test"}
	if err := BindFlags(cmd, opts); err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}

	if opts.SourceFolder != "./sources" {
		t.Errorf("expected ./sources, got %s", opts.SourceFolder)
	}
	if opts.Jobs != 1 {
		t.Errorf("expected 1 job, got %d", opts.Jobs)
	}
	for _, name := range []string{"config", "source-folder", "ffmpeg-bin", "encode-all", "jobs", "only", "logging-level"} {
		if cmd.Flag(name) == nil {
			t.Errorf("expected flag %s", name)
		}
	}
	if f := cmd.Flags().ShorthandLookup("j"); f == nil || f.Name != "jobs" {
		t.Error("expected -j to alias --jobs")
	}
}

func TestBindFlagsRejectsBadInput(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	if err := BindFlags(cmd, runOptions{}); err == nil {
		t.Error("expected error for non-pointer options")
	}

	type badDefault struct {
		Jobs int `default:"many"`
	}
	if err := BindFlags(cmd, &badDefault{}); err == nil {
		t.Error("expected error for invalid int default")
	}

	type unsupported struct {
		Ratio float64
	}
	if err := BindFlags(&cobra.Command{Use: "x"}, &unsupported{}); err == nil {
		t.Error("expected error for unsupported field type")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"run": map[string]any{
			"limits": map[string]any{"jobs": int64(4)},
			"mode":   "all",
		},
		"root": "value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "value"},
		{"run.mode", "all"},
		{"run.limits.jobs", int64(4)},
		{"missing", nil},
		{"run.missing", nil},
		{"root.child", nil},
	}

	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Jobs":           "jobs",
		"EncodeAll":      "encode-all",
		"TestConfigDir":  "test-config-dir",
		"LoggingEncoder": "logging-encoder",
		"OutputURL":      "output-url",
		"HTTPPort":       "http-port",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%s) = %s, expected %s", in, got, want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &runOptions{Config: filepath.Join(t.TempDir(), "nope.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &runOptions{Config: writeConfig(t, "[run\njobs = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	cfg := LoadLoggingConfig(writeConfig(t, sampleConfig))

	if cfg.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected default text format, got %s", cfg.Format)
	}
	want := map[string]string{"encoder": "warn", "report": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("expected modules %v, got %v", want, cfg.Modules)
	}

	def := LoadLoggingConfig("")
	if def.Level != "info" || len(def.Modules) != 0 {
		t.Errorf("expected defaults, got %+v", def)
	}
}

type reportOptions struct {
	TemplateDir string `help:"Template directory" default:"./templates" toml:"report.template_dir" env:"REPORT_TEMPLATE_DIR"`
}

func TestLoadConfigInheritedConfigFlag(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	ropts := &runOptions{}
	if err := BindFlags(root, ropts); err != nil {
		t.Fatal(err)
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("expected --config to be persistent")
	}

	sub := &cobra.Command{Use: "report", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(sub)
	sopts := &reportOptions{}
	if err := BindFlags(sub, sopts); err != nil {
		t.Fatal(err)
	}

	path := writeConfig(t, "[report]\ntemplate_dir = \"/srv/templates\"\n")
	root.SetArgs([]string{"report", "--config", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if err := LoadConfig(sopts, sub); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if sopts.TemplateDir != "/srv/templates" {
		t.Errorf("expected template dir from inherited config, got %s", sopts.TemplateDir)
	}
}
