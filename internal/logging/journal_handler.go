package logging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry written by this program.
const SyslogIdentifier = "enctests"

// JournalHandler writes records to the systemd journal. Attributes become
// journal fields named by their upper-cased group path, e.g. CLIP or
// RUN_HOST_CPU.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string // from WithAttrs, already prefixed
	prefix string            // open groups joined with '_'
	send   func(msg string, priority journal.Priority, fields map[string]string) error
}

// NewJournalHandler creates a journal handler for records at level and above.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, send: journal.Send}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.fields)+r.NumAttrs()+1)
	maps.Copy(fields, h.fields)
	r.Attrs(func(a slog.Attr) bool {
		putField(fields, h.prefix, a)
		return true
	})
	fields["SYSLOG_IDENTIFIER"] = SyslogIdentifier
	return h.send(r.Message, journalPriority(r.Level), fields)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.fields = maps.Clone(h.fields)
	if out.fields == nil {
		out.fields = make(map[string]string, len(attrs))
	}
	for _, a := range attrs {
		putField(out.fields, h.prefix, a)
	}
	return &out
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = fieldName(h.prefix, name)
	return &out
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	}
	return journal.PriDebug
}

func putField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		// Inline groups (empty key) keep the current prefix
		p := prefix
		if a.Key != "" {
			p = fieldName(prefix, a.Key)
		}
		for _, ga := range a.Value.Group() {
			putField(fields, p, ga)
		}
		return
	}

	key := fieldName(prefix, a.Key)
	if key == "" {
		return
	}
	switch a.Value.Kind() {
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(a.Value.Float64(), 'g', -1, 64)
	case slog.KindTime:
		fields[key] = a.Value.Time().Format(time.RFC3339Nano)
	default:
		fields[key] = a.Value.String()
	}
}

// fieldName joins prefix and key into a valid journal field name:
// upper case letters, digits and underscores, not starting with an
// underscore or digit. Other characters (as in "-c:v") become underscores.
func fieldName(prefix, key string) string {
	name := strings.Map(func(c rune) rune {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return c
		}
		return '_'
	}, strings.ToUpper(key))
	name = strings.TrimLeft(name, "_0123456789")
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + "_" + name
}

// IsJournalAvailable reports whether the systemd journal socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
