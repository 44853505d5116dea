package events

// Event type constants for kelindar/event.
const (
	TypeEncodeStarted uint32 = iota + 1
	TypeEncodeCompleted
	TypeEncodeFailed
	TypeEncodeSkipped
	TypeRunCompleted
	TypeReportWritten
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// EncodeStartedEvent is published right before the encoder is invoked.
type EncodeStartedEvent struct {
	Clip        string `json:"clip"`
	Test        string `json:"test"`
	ToolVersion string `json:"tool_version"`
	Output      string `json:"output"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for EncodeStartedEvent.
func (e EncodeStartedEvent) Type() uint32 { return TypeEncodeStarted }

// EncodeCompletedEvent is published after a successful encode.
type EncodeCompletedEvent struct {
	Clip          string  `json:"clip"`
	Test          string  `json:"test"`
	ToolVersion   string  `json:"tool_version"`
	Output        string  `json:"output"`
	EncodeTime    float64 `json:"encode_time"`
	FilesizeBytes int64   `json:"filesize_bytes"`
	Timestamp     string  `json:"timestamp"`
}

// Type returns the event type identifier for EncodeCompletedEvent.
func (e EncodeCompletedEvent) Type() uint32 { return TypeEncodeCompleted }

// EncodeFailedEvent is published when an encode could not produce output.
type EncodeFailedEvent struct {
	Clip      string `json:"clip"`
	Test      string `json:"test"`
	ExitCode  int    `json:"exit_code"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for EncodeFailedEvent.
func (e EncodeFailedEvent) Type() uint32 { return TypeEncodeFailed }

// EncodeSkippedEvent is published when a pair already has a current result.
type EncodeSkippedEvent struct {
	Clip   string `json:"clip"`
	Test   string `json:"test"`
	Reason string `json:"reason"`
}

// Type returns the event type identifier for EncodeSkippedEvent.
func (e EncodeSkippedEvent) Type() uint32 { return TypeEncodeSkipped }

// RunCompletedEvent is published once the whole matrix has been processed.
type RunCompletedEvent struct {
	RunID    string  `json:"run_id"`
	Encoded  int     `json:"encoded"`
	Skipped  int     `json:"skipped"`
	Failed   int     `json:"failed"`
	Duration float64 `json:"duration_seconds"`
}

// Type returns the event type identifier for RunCompletedEvent.
func (e RunCompletedEvent) Type() uint32 { return TypeRunCompleted }

// ReportWrittenEvent is published for every chart or HTML file written.
type ReportWrittenEvent struct {
	Report string `json:"report"`
	Kind   string `json:"kind"` // chart or html
	Path   string `json:"path"`
}

// Type returns the event type identifier for ReportWrittenEvent.
func (e ReportWrittenEvent) Type() uint32 { return TypeReportWritten }
