package ffmpeg

import (
	"log/slog"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"release", "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc 13\n", "ffmpeg_version_6.1.1-3ubuntu5"},
		{"leading blank line", "\nffmpeg version n7.0\n", "ffmpeg_version_n7.0"},
		{"short", "ffmpeg 5\n", "ffmpeg_5"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseVersion([]byte(tt.output)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDisplayVersion(t *testing.T) {
	if got := DisplayVersion("ffmpeg_version_6.0"); got != "6.0" {
		t.Errorf("expected 6.0, got %s", got)
	}
	if got := DisplayVersion("custom_7"); got != "custom_7" {
		t.Errorf("expected custom_7 unchanged, got %s", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "simple info",
			input:     "[info] Stream mapping:",
			wantLevel: "info",
			wantMsg:   "Stream mapping:",
		},
		{
			name:      "simple error",
			input:     "[error] failed to open file",
			wantLevel: "error",
			wantMsg:   "failed to open file",
		},
		{
			name:      "component prefix with warning",
			input:     "[swscaler @ 0x7f673c439fc0] [warning] deprecated pixel format used",
			wantLevel: "warning",
			wantMsg:   "[swscaler @ 0x7f673c439fc0] deprecated pixel format used",
		},
		{
			name:      "component prefix without level",
			input:     "[libx264 @ 0x55f4a8c00000] frame=100 fps=30",
			wantLevel: "info",
			wantMsg:   "[libx264 @ 0x55f4a8c00000] frame=100 fps=30",
		},
		{
			name:      "no prefix",
			input:     "frame=100 fps=30 q=28.0 size=1024kB",
			wantLevel: "info",
			wantMsg:   "frame=100 fps=30 q=28.0 size=1024kB",
		},
		{
			name:      "empty line",
			input:     "",
			wantLevel: "info",
			wantMsg:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLevel, gotMsg := ParseLogLevel(tt.input)
			if gotLevel != tt.wantLevel {
				t.Errorf("ParseLogLevel() level = %q, want %q", gotLevel, tt.wantLevel)
			}
			if gotMsg != tt.wantMsg {
				t.Errorf("ParseLogLevel() msg = %q, want %q", gotMsg, tt.wantMsg)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"fatal":   slog.LevelError,
		"warning": slog.LevelWarn,
		"verbose": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := SlogLevel(in); got != want {
			t.Errorf("SlogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}
