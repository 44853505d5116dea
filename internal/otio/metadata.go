package otio

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Namespace is the metadata key under which all encoding test data lives.
const Namespace = "aswf_enctests"

// SourceInfoKey holds the source descriptor values on a clip.
const SourceInfoKey = "SOURCE_INFO"

// SourceInfo is the source descriptor as recorded on a clip.
type SourceInfo struct {
	Path      string  `json:"path"`
	Rate      float64 `json:"rate"`
	In        int     `json:"in"`
	Duration  int     `json:"duration"`
	InputArgs string  `json:"input_args"`
}

// MetricSummary summarises a per-frame quality metric.
type MetricSummary struct {
	Min          float64 `json:"min"`
	Mean         float64 `json:"mean"`
	HarmonicMean float64 `json:"harmonic_mean"`
}

// EncodeResult is what one encode of one test produced.
type EncodeResult struct {
	EncodeTime      float64 `json:"encode_time"`
	EncodeArguments string  `json:"encode_arguments"`
	Filesize        string  `json:"filesize"`
	FilesizeBytes   int64   `json:"filesize_bytes,omitempty"`
	Description     string  `json:"description,omitempty"`
	RunID           string  `json:"run_id,omitempty"`
	EncodedAt       string  `json:"encoded_at,omitempty"`

	// Quality metrics are filled in by external tooling, when at all.
	VMAF   *MetricSummary `json:"vmaf,omitempty"`
	PSNRY  *MetricSummary `json:"psnr_y,omitempty"`
	PSNRCb *MetricSummary `json:"psnr_cb,omitempty"`
	PSNRCr *MetricSummary `json:"psnr_cr,omitempty"`
}

// HasQualityMetrics reports whether VMAF and PSNR-Y summaries are present.
func (r *EncodeResult) HasQualityMetrics() bool {
	return r.VMAF != nil && r.PSNRY != nil
}

// EncodeResults nests results by tool version, then by test name.
type EncodeResults map[string]map[string]*EncodeResult

// ReferenceMetadata is the metadata carried by a media reference.
// Namespaces other than ours are kept verbatim.
type ReferenceMetadata struct {
	Results EncodeResults
	extra   map[string]json.RawMessage
}

// Result returns the entry for version and test, creating it if needed.
func (m *ReferenceMetadata) Result(version, test string) *EncodeResult {
	if m.Results == nil {
		m.Results = make(EncodeResults)
	}
	byTest, ok := m.Results[version]
	if !ok {
		byTest = make(map[string]*EncodeResult)
		m.Results[version] = byTest
	}
	res, ok := byTest[test]
	if !ok {
		res = &EncodeResult{}
		byTest[test] = res
	}
	return res
}

// Lookup returns the entry for version and test without creating it.
func (m *ReferenceMetadata) Lookup(version, test string) (*EncodeResult, bool) {
	byTest, ok := m.Results[version]
	if !ok {
		return nil, false
	}
	res, ok := byTest[test]
	return res, ok
}

// Versions returns the recorded tool versions, sorted.
func (m *ReferenceMetadata) Versions() []string {
	return slices.Sorted(maps.Keys(m.Results))
}

// Merge folds other into m. Entries present in other replace the entry at the
// same (version, test) key; every other entry in m is left alone.
func (m *ReferenceMetadata) Merge(other ReferenceMetadata) {
	for version, byTest := range other.Results {
		for test, res := range byTest {
			if res == nil {
				continue
			}
			cp := *res
			*m.Result(version, test) = cp
		}
	}
	for k, v := range other.extra {
		if m.extra == nil {
			m.extra = make(map[string]json.RawMessage)
		}
		m.extra[k] = v
	}
}

// Clone returns a deep copy.
func (m ReferenceMetadata) Clone() ReferenceMetadata {
	var out ReferenceMetadata
	out.Merge(m)
	return out
}

// MarshalJSON implements json.Marshaler.
func (m ReferenceMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+1)
	for k, v := range m.extra {
		out[k] = v
	}
	if len(m.Results) > 0 {
		out[Namespace] = m.Results
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *ReferenceMetadata) UnmarshalJSON(data []byte) error {
	raw, err := splitNamespace(data)
	if err != nil {
		return err
	}
	if ns, ok := raw[Namespace]; ok {
		delete(raw, Namespace)
		var results EncodeResults
		if err := json.Unmarshal(ns, &results); err != nil {
			return fmt.Errorf("invalid %s reference metadata: %w", Namespace, err)
		}
		if err := results.validate(); err != nil {
			return fmt.Errorf("invalid %s reference metadata: %w", Namespace, err)
		}
		m.Results = results
	}
	m.extra = raw
	return nil
}

// validate rejects versions and tests recorded without a result.
func (r EncodeResults) validate() error {
	for _, version := range slices.Sorted(maps.Keys(r)) {
		byTest := r[version]
		if byTest == nil {
			return fmt.Errorf("version %q has no results", version)
		}
		for _, test := range slices.Sorted(maps.Keys(byTest)) {
			if byTest[test] == nil {
				return fmt.Errorf("version %q test %q has no result", version, test)
			}
		}
	}
	return nil
}

// ClipMetadata is the metadata carried by a clip.
type ClipMetadata struct {
	SourceInfo *SourceInfo
	extra      map[string]json.RawMessage
}

type clipNamespace struct {
	SourceInfo *SourceInfo `json:"SOURCE_INFO,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m ClipMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+1)
	for k, v := range m.extra {
		out[k] = v
	}
	if m.SourceInfo != nil {
		out[Namespace] = clipNamespace{SourceInfo: m.SourceInfo}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *ClipMetadata) UnmarshalJSON(data []byte) error {
	raw, err := splitNamespace(data)
	if err != nil {
		return err
	}
	if ns, ok := raw[Namespace]; ok {
		delete(raw, Namespace)
		var w clipNamespace
		if err := json.Unmarshal(ns, &w); err != nil {
			return fmt.Errorf("invalid %s clip metadata: %w", Namespace, err)
		}
		m.SourceInfo = w.SourceInfo
	}
	m.extra = raw
	return nil
}

// HostInfo describes the machine a run executed on.
type HostInfo struct {
	Hostname    string `json:"hostname,omitempty"`
	OS          string `json:"os,omitempty"`
	Platform    string `json:"platform,omitempty"`
	CPUModel    string `json:"cpu_model,omitempty"`
	CPUCores    int    `json:"cpu_cores,omitempty"`
	MemoryTotal string `json:"memory_total,omitempty"`
}

// RunInfo describes the most recent run that wrote a collection.
type RunInfo struct {
	RunID          string    `json:"run_id,omitempty"`
	HarnessVersion string    `json:"harness_version,omitempty"`
	StartedAt      string    `json:"started_at,omitempty"`
	ToolVersions   []string  `json:"tool_versions,omitempty"`
	Host           *HostInfo `json:"host,omitempty"`
}

// CollectionMetadata is the metadata carried by a collection.
type CollectionMetadata struct {
	Run   *RunInfo
	extra map[string]json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (m CollectionMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+1)
	for k, v := range m.extra {
		out[k] = v
	}
	if m.Run != nil {
		out[Namespace] = m.Run
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *CollectionMetadata) UnmarshalJSON(data []byte) error {
	raw, err := splitNamespace(data)
	if err != nil {
		return err
	}
	if ns, ok := raw[Namespace]; ok {
		delete(raw, Namespace)
		var run RunInfo
		if err := json.Unmarshal(ns, &run); err != nil {
			return fmt.Errorf("invalid %s collection metadata: %w", Namespace, err)
		}
		m.Run = &run
	}
	m.extra = raw
	return nil
}

func splitNamespace(data []byte) (map[string]json.RawMessage, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
