package ffmpeg

import (
	"bufio"
	"bytes"
	"log/slog"
	"strings"
)

// VersionPrefix starts every version key produced by ParseVersion for ffmpeg.
const VersionPrefix = "ffmpeg_version_"

// ParseVersion turns `-version` output into a metadata key: the first three
// words of the first line joined by underscores, e.g. ffmpeg_version_6.1.1.
func ParseVersion(output []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 3 {
			fields = fields[:3]
		}
		return strings.Join(fields, "_")
	}
	return ""
}

// DisplayVersion strips the ffmpeg_version_ prefix for presentation.
func DisplayVersion(key string) string {
	return strings.TrimPrefix(key, VersionPrefix)
}

// ParseLogLevel extracts the log level from ffmpeg output.
// FFmpeg with -loglevel level+info outputs lines like "[info] message"
// or "[component @ 0x...] [level] message" for component-specific logs.
// Returns the level and the message with level stripped but component preserved.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	if bracket := line[1:end]; isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	component, rest := line[:end+2], line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if next := strings.Index(rest, "] "); next != -1 && isLogLevel(rest[1:next]) {
			return rest[1:next], component + rest[next+2:]
		}
	}

	return "info", line
}

// SlogLevel maps an ffmpeg level name onto slog.
func SlogLevel(level string) slog.Level {
	switch level {
	case "quiet", "panic", "fatal", "error":
		return slog.LevelError
	case "warning":
		return slog.LevelWarn
	case "verbose", "debug", "trace":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
