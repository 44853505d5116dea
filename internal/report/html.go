package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/ffmpeg"
)

//go:embed templates/default.html.tmpl
var defaultTemplate string

// DefaultTemplateName is reported when the built-in template is used.
const DefaultTemplateName = "default.html.tmpl"

var funcs = template.FuncMap{
	"version": ffmpeg.DisplayVersion,
	"metric": func(v float64) string {
		if v == MissingMetric {
			return "n/a"
		}
		return strconv.FormatFloat(v, 'f', 2, 64)
	},
}

// LoadTemplate parses name from dir. An empty name or a file that does not
// exist selects the built-in template; the returned name tells which one was
// used.
func LoadTemplate(dir, name string) (*template.Template, string, error) {
	if name != "" {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			t, parseErr := template.New(filepath.Base(path)).Funcs(funcs).Parse(string(data))
			if parseErr != nil {
				return nil, path, fmt.Errorf("invalid template %s: %w", path, parseErr)
			}
			return t, path, nil
		case !os.IsNotExist(err):
			return nil, path, fmt.Errorf("failed to read template: %w", err)
		}
	}
	t := template.Must(template.New(DefaultTemplateName).Funcs(funcs).Parse(defaultTemplate))
	return t, DefaultTemplateName, nil
}

// RenderHTML executes t with the report data. Templates see tests (the
// tracks), testinfo, config (the report section) and graphs (chart file
// names relative to the HTML file).
func RenderHTML(t *template.Template, cfg descriptor.ReportConfig, ds *Dataset, graphs []string) ([]byte, error) {
	data := map[string]any{
		"tests":    ds.Tracks,
		"rows":     ds.Rows,
		"testinfo": ds.Info,
		"config":   cfg,
		"graphs":   graphs,
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report %s: %w", cfg.Name, err)
	}
	return buf.Bytes(), nil
}
