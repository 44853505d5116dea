// Package descriptor loads the declarative test inputs: source descriptors
// (*.source) and encode-test descriptors (*.enctest).
//
// Both are ini files. Values may continue over indented lines, the way
// Python's configparser allows; continuation lines are joined with spaces
// for argument strings.
//
// A source file holds one SOURCE_INFO section:
//
//	[SOURCE_INFO]
//	path = clips/a.mov
//	rate = 24
//	in = 0
//	duration = 48
//	input_args = -r 24
//
// A test file holds any number of test sections and optionally one reports
// section:
//
//	[test_h264]
//	encoding_args = -c:v libx264 -crf 23
//	suffix = .mp4
//	description = x264 at crf 23
//
//	[reports]
//	name = h264-vs-h265
//	templatefile = basic.html
//	directory = reports
//	graphs = [
//	    {name: encode_time.png, type: bar, args: {x: media, y: encode_time, color: name}},
//	  ]
package descriptor

// File suffixes scanned by the loaders.
const (
	SourceSuffix = ".source"
	TestSuffix   = ".enctest"
)

// SourceSection is the section holding source details.
const SourceSection = "SOURCE_INFO"

// ReportSection is the section holding report configuration.
const ReportSection = "reports"

// Kind classifies a section of a test descriptor file. It is assigned once
// at load time.
type Kind int

// Section kinds.
const (
	KindOther Kind = iota
	KindTest
	KindReport
)

func (k Kind) String() string {
	switch k {
	case KindTest:
		return "test"
	case KindReport:
		return "report"
	default:
		return "other"
	}
}

// SourceDescriptor describes one source asset.
type SourceDescriptor struct {
	Name      string // descriptor file name without suffix
	File      string // descriptor file it came from
	Path      string // relative to the source folder
	Rate      float64
	In        int
	Duration  int
	InputArgs string
}

// EncodeTestDescriptor describes one named encoder variant.
type EncodeTestDescriptor struct {
	Name         string
	File         string
	Kind         Kind
	EncodingArgs string
	Suffix       string
	Description  string
	// Extra holds any other keys of the section, e.g. grouping keys used
	// by reports.
	Extra map[string]string
}

// GraphSpec declares one chart of a report.
type GraphSpec struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	SortBy     string         `yaml:"sortby"`
	ColorOrder []string       `yaml:"colororder"`
	Args       map[string]any `yaml:"args"`
}

// ReportConfig is a parsed reports section.
type ReportConfig struct {
	File         string
	Name         string
	TemplateFile string
	Directory    string
	Graphs       []GraphSpec
	// Values holds every raw key of the section for templates.
	Values map[string]string
}

// Catalog is everything loaded from a test descriptor directory.
type Catalog struct {
	Tests   []EncodeTestDescriptor
	Reports []ReportConfig
}

// TestNames returns the test names in load order.
func (c *Catalog) TestNames() []string {
	names := make([]string, 0, len(c.Tests))
	for _, t := range c.Tests {
		names = append(names, t.Name)
	}
	return names
}

// Only returns a catalog restricted to the named tests. Reports are kept.
func (c *Catalog) Only(names ...string) *Catalog {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := &Catalog{Reports: c.Reports}
	for _, t := range c.Tests {
		if want[t.Name] {
			out.Tests = append(out.Tests, t)
		}
	}
	return out
}
