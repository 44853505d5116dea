package descriptor

import "fmt"

// ConfigParseError reports a malformed descriptor file or value.
type ConfigParseError struct {
	File    string
	Section string
	Key     string
	Err     error
}

func (e *ConfigParseError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("%s: [%s] %s: %v", e.File, e.Section, e.Key, e.Err)
	case e.Section != "":
		return fmt.Sprintf("%s: [%s]: %v", e.File, e.Section, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
}

func (e *ConfigParseError) Unwrap() error { return e.Err }
