package report

import (
	"fmt"
	"strconv"

	"github.com/smazurov/enctests/internal/ffmpeg"
	"github.com/smazurov/enctests/internal/otio"
)

// MissingMetric is the harmonic mean reported when a quality metric was
// not computed.
const MissingMetric = -1.0

// Row is one encode of one clip with one test under one tool version.
type Row struct {
	Name            string // test name
	Media           string // clip name
	OutputMedia     string // name of the output reference
	ToolVersion     string
	TestDescription string

	EncodeTime      float64
	EncodeArguments string // encode arguments as "key value" pairs
	Filesize        string
	FilesizeBytes   int64
	RunID           string
	EncodedAt       string

	HasQualityMetrics bool
	VMAFMin           float64
	VMAFMean          float64
	VMAFHarmonicMean  float64
	PSNRYHarmonicMean float64

	// Args holds decode and encode options keyed by option name, dash
	// included. Encode options win over decode options of the same name.
	Args    map[string]string
	argKeys []string
}

// Value returns the field named key, using the names charts and templates
// refer to: name, media, output_media, encode_time, filesize, ... or an
// option name such as -c:v. Quality metrics are absent on rows that were
// not measured; the MissingMetric sentinel stays on the struct fields.
func (r Row) Value(key string) (any, bool) {
	switch key {
	case "name":
		return r.Name, true
	case "media":
		return r.Media, true
	case "output_media":
		return r.OutputMedia, true
	case "tool_version":
		return r.ToolVersion, true
	case "ffmpeg_version":
		return ffmpeg.DisplayVersion(r.ToolVersion), true
	case "test_description":
		return r.TestDescription, r.TestDescription != ""
	case "encode_time":
		return r.EncodeTime, true
	case "encode_arguments":
		return r.EncodeArguments, true
	case "filesize":
		return r.Filesize, true
	case "filesize_bytes":
		return r.FilesizeBytes, true
	case "run_id":
		return r.RunID, r.RunID != ""
	case "vmaf_min":
		return r.VMAFMin, r.HasQualityMetrics
	case "vmaf_mean":
		return r.VMAFMean, r.HasQualityMetrics
	case "vmaf_harmonic_mean":
		return r.VMAFHarmonicMean, r.HasQualityMetrics
	case "psnr_y_harmonic_mean":
		return r.PSNRYHarmonicMean, r.HasQualityMetrics
	}
	v, ok := r.Args[key]
	return v, ok
}

// String returns the field named key formatted as text.
func (r Row) String(key string) string {
	v, ok := r.Value(key)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Float returns the field named key as a number, parsing option values
// such as "23".
func (r Row) Float(key string) (float64, bool) {
	v, ok := r.Value(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// ArgKeys returns the option names of Args in the order they were given.
func (r Row) ArgKeys() []string {
	return r.argKeys
}

// Flatten emits one row per clip, non-default reference and tool version,
// in collection order.
func Flatten(coll *otio.Collection) []Row {
	var rows []Row
	for _, clip := range coll.Clips {
		rows = append(rows, FlattenClip(clip)...)
	}
	return rows
}

// FlattenClip emits the rows of a single clip, references sorted by name.
func FlattenClip(clip *otio.Clip) []Row {
	var decodeArgs string
	if si := clip.Metadata.SourceInfo; si != nil {
		decodeArgs = si.InputArgs
	}

	var rows []Row
	for _, refName := range clip.TestReferenceNames() {
		ref, _ := clip.Reference(refName)
		meta := ref.Info().Metadata
		for _, version := range meta.Versions() {
			res, ok := meta.Lookup(version, refName)
			if !ok {
				res = firstResult(meta.Results[version])
			}
			if res == nil {
				continue
			}
			rows = append(rows, newRow(clip.Name, refName, ref.Info().Name, version, decodeArgs, res))
		}
	}
	return rows
}

func newRow(clip, test, output, version, decodeArgs string, res *otio.EncodeResult) Row {
	row := Row{
		Name:              test,
		Media:             clip,
		OutputMedia:       output,
		ToolVersion:       version,
		TestDescription:   res.Description,
		EncodeTime:        res.EncodeTime,
		Filesize:          res.Filesize,
		FilesizeBytes:     res.FilesizeBytes,
		RunID:             res.RunID,
		EncodedAt:         res.EncodedAt,
		VMAFHarmonicMean:  MissingMetric,
		PSNRYHarmonicMean: MissingMetric,
		Args:              make(map[string]string),
	}
	if row.OutputMedia == "" {
		row.OutputMedia = test
	}

	if res.HasQualityMetrics() {
		row.HasQualityMetrics = true
		row.VMAFMin = res.VMAF.Min
		row.VMAFMean = res.VMAF.Mean
		row.VMAFHarmonicMean = res.VMAF.HarmonicMean
		row.PSNRYHarmonicMean = res.PSNRY.HarmonicMean
	}

	// Unparseable argument strings still show up in the combined field.
	decode, _ := ffmpeg.ParseArgPairs(decodeArgs)
	encode, err := ffmpeg.ParseArgPairs(res.EncodeArguments)
	for _, p := range append(decode, encode...) {
		if p.Key == "" {
			continue
		}
		if _, seen := row.Args[p.Key]; !seen {
			row.argKeys = append(row.argKeys, p.Key)
		}
		row.Args[p.Key] = p.Value
	}
	if err != nil {
		row.EncodeArguments = res.EncodeArguments
	} else {
		row.EncodeArguments = ffmpeg.JoinArgPairs(encode)
	}
	return row
}

func firstResult(byTest map[string]*otio.EncodeResult) *otio.EncodeResult {
	var first string
	for name := range byTest {
		if first == "" || name < first {
			first = name
		}
	}
	if first == "" {
		return nil
	}
	return byTest[first]
}
