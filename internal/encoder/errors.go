package encoder

import (
	"fmt"
)

// EncodeFailure is returned when the encoder did not produce an output.
type EncodeFailure struct {
	TestName string
	ClipName string
	Command  string
	ExitCode int
	Output   []string // last lines of encoder output
	Err      error
}

func (e *EncodeFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode %s/%s failed (exit %d): %v", e.ClipName, e.TestName, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("encode %s/%s failed with exit code %d", e.ClipName, e.TestName, e.ExitCode)
}

func (e *EncodeFailure) Unwrap() error { return e.Err }
