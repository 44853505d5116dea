// Package process runs external tools to completion.
//
// Process wraps os/exec for a single subprocess:
//   - Graceful stop with SIGINT when the context ends
//   - Force kill with SIGKILL if graceful stop times out
//   - Output streaming with pluggable log parsing and line handlers
//
// Example:
//
//	p := process.NewProcessWithOutput("encode", args, logger, tail)
//	p.SetLogParser(ffmpegLogger, func(line string) (slog.Level, string) {
//		level, msg := ffmpeg.ParseLogLevel(line)
//		return ffmpeg.SlogLevel(level), msg
//	})
//	code, err := p.Run(ctx)
package process
