package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

var (
	errMissingSection = errors.New("section not found")
	errMissingKey     = errors.New("required key missing")
	errDuplicateTest  = errors.New("test name already defined")
)

// loadOptions mirrors Python configparser: indented continuation lines,
// case-insensitive keys, no inline comments.
var loadOptions = ini.LoadOptions{
	AllowPythonMultilineValues: true,
	InsensitiveKeys:            true,
	IgnoreInlineComment:        true,
}

// LoadSources parses every *.source file in dir, in filename order.
// Files that fail to parse are skipped; their errors are joined into the
// returned error alongside the descriptors that did load.
func LoadSources(dir string) ([]SourceDescriptor, error) {
	files, err := scan(dir, SourceSuffix)
	if err != nil {
		return nil, err
	}

	var sources []SourceDescriptor
	var errs []error
	for _, path := range files {
		src, err := ParseSourceFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, errors.Join(errs...)
}

// LoadTests parses every *.enctest file in dir, in filename order. Test
// sections keep their order within a file. Bad files or sections are
// skipped and reported through the joined error.
func LoadTests(dir string) (*Catalog, error) {
	files, err := scan(dir, TestSuffix)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{}
	seen := make(map[string]string)
	var errs []error
	for _, path := range files {
		tests, reports, err := ParseTestFile(path)
		if err != nil {
			errs = append(errs, err)
		}
		for _, t := range tests {
			if first, dup := seen[t.Name]; dup {
				errs = append(errs, &ConfigParseError{
					File: path, Section: t.Name,
					Err: fmt.Errorf("%w in %s", errDuplicateTest, first),
				})
				continue
			}
			seen[t.Name] = path
			catalog.Tests = append(catalog.Tests, t)
		}
		catalog.Reports = append(catalog.Reports, reports...)
	}
	return catalog, errors.Join(errs...)
}

// ParseSourceFile reads the SOURCE_INFO section of a single file.
func ParseSourceFile(path string) (SourceDescriptor, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return SourceDescriptor{}, &ConfigParseError{File: path, Err: err}
	}

	sec, err := f.GetSection(SourceSection)
	if err != nil {
		return SourceDescriptor{}, &ConfigParseError{File: path, Section: SourceSection, Err: errMissingSection}
	}

	src := SourceDescriptor{
		Name: strings.TrimSuffix(filepath.Base(path), SourceSuffix),
		File: path,
	}

	if src.Path = strings.TrimSpace(sec.Key("path").String()); src.Path == "" {
		return src, &ConfigParseError{File: path, Section: SourceSection, Key: "path", Err: errMissingKey}
	}
	if src.Rate, err = requireFloat(sec, "rate"); err != nil {
		return src, &ConfigParseError{File: path, Section: SourceSection, Key: "rate", Err: err}
	}
	if src.Duration, err = requireInt(sec, "duration"); err != nil {
		return src, &ConfigParseError{File: path, Section: SourceSection, Key: "duration", Err: err}
	}
	if src.Duration == 0 {
		return src, &ConfigParseError{File: path, Section: SourceSection, Key: "duration",
			Err: errors.New("must be at least one frame")}
	}
	if sec.HasKey("in") {
		if src.In, err = requireInt(sec, "in"); err != nil {
			return src, &ConfigParseError{File: path, Section: SourceSection, Key: "in", Err: err}
		}
	}
	src.InputArgs = JoinLines(sec.Key("input_args").String())

	return src, nil
}

// ParseTestFile reads the test and report sections of a single file.
// Sections that are neither are ignored. A malformed section does not stop
// the remaining sections from loading.
func ParseTestFile(path string) ([]EncodeTestDescriptor, []ReportConfig, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, nil, &ConfigParseError{File: path, Err: err}
	}

	var tests []EncodeTestDescriptor
	var reports []ReportConfig
	var errs []error
	for _, sec := range f.Sections() {
		switch Classify(sec.Name()) {
		case KindTest:
			t, err := parseTest(path, sec)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			tests = append(tests, t)
		case KindReport:
			r, err := parseReport(path, sec)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			reports = append(reports, r)
		}
	}
	return tests, reports, errors.Join(errs...)
}

// Classify assigns the kind of a test file section from its name.
func Classify(section string) Kind {
	switch {
	case strings.EqualFold(section, ReportSection):
		return KindReport
	case strings.HasPrefix(strings.ToLower(section), "test"):
		return KindTest
	default:
		return KindOther
	}
}

func parseTest(path string, sec *ini.Section) (EncodeTestDescriptor, error) {
	t := EncodeTestDescriptor{
		Name:         sec.Name(),
		File:         path,
		Kind:         KindTest,
		EncodingArgs: JoinLines(sec.Key("encoding_args").String()),
		Suffix:       strings.TrimSpace(sec.Key("suffix").String()),
		Description:  JoinLines(sec.Key("description").String()),
		Extra:        make(map[string]string),
	}
	if t.Suffix == "" {
		return t, &ConfigParseError{File: path, Section: t.Name, Key: "suffix", Err: errMissingKey}
	}
	for _, key := range sec.Keys() {
		switch key.Name() {
		case "encoding_args", "suffix", "description":
		default:
			t.Extra[key.Name()] = JoinLines(key.String())
		}
	}
	return t, nil
}

func parseReport(path string, sec *ini.Section) (ReportConfig, error) {
	r := ReportConfig{
		File:         path,
		Name:         strings.TrimSpace(sec.Key("name").String()),
		TemplateFile: strings.TrimSpace(sec.Key("templatefile").String()),
		Directory:    strings.TrimSpace(sec.Key("directory").String()),
		Values:       sec.KeysHash(),
	}
	if r.Name == "" {
		return r, &ConfigParseError{File: path, Section: sec.Name(), Key: "name", Err: errMissingKey}
	}
	graphs, err := ParseGraphs(sec.Key("graphs").String(), filepath.Dir(path))
	if err != nil {
		return r, &ConfigParseError{File: path, Section: sec.Name(), Key: "graphs", Err: err}
	}
	r.Graphs = graphs
	return r, nil
}

// JoinLines turns a multi-line value into a single space separated line.
func JoinLines(v string) string {
	lines := strings.Split(v, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

func requireFloat(sec *ini.Section, name string) (float64, error) {
	if !sec.HasKey(name) {
		return 0, errMissingKey
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(sec.Key(name).String()), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", v)
	}
	return v, nil
}

func requireInt(sec *ini.Section, name string) (int, error) {
	if !sec.HasKey(name) {
		return 0, errMissingKey
	}
	v, err := strconv.Atoi(strings.TrimSpace(sec.Key(name).String()))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", v)
	}
	return v, nil
}

// scan lists regular, non-hidden files in dir ending in suffix, sorted by name.
func scan(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != suffix {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}
