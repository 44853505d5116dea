// Package report turns result documents into charts and an HTML page.
//
// Result collections are flattened into rows, one per clip, test and tool
// version, and grouped into tracks by clip name. Each report section of the
// test descriptors then yields one image per declared graph and one HTML
// file:
//
//	<directory>/<name>-<graph name>
//	<directory>/<name>.html
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smazurov/enctests/internal/descriptor"
	"github.com/smazurov/enctests/internal/events"
	"github.com/smazurov/enctests/internal/logging"
)

// ErrReportConfigMissing is returned when no reports section was found.
var ErrReportConfigMissing = errors.New("no reports section found in test descriptors")

// Output kinds used in ReportWrittenEvent.
const (
	KindChart = "chart"
	KindHTML  = "html"
)

// Reports returns the report sections of catalog, or ErrReportConfigMissing.
func Reports(catalog *descriptor.Catalog) ([]descriptor.ReportConfig, error) {
	if catalog == nil || len(catalog.Reports) == 0 {
		return nil, ErrReportConfigMissing
	}
	return catalog.Reports, nil
}

// GeneratorOptions configures a new Generator.
type GeneratorOptions struct {
	// TemplateDir is where templatefile names are resolved.
	TemplateDir string

	// EventBus receives a ReportWrittenEvent per file (optional).
	EventBus *events.Bus

	// Logger for report operations. If nil, uses the "report" module logger.
	Logger *slog.Logger
}

// Generator writes report files.
type Generator struct {
	templateDir string
	bus         *events.Bus
	logger      *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("report")
	}
	return &Generator{
		templateDir: opts.TemplateDir,
		bus:         opts.EventBus,
		logger:      logger,
	}
}

// ChartPath returns where graph of cfg is written.
func ChartPath(cfg descriptor.ReportConfig, graph descriptor.GraphSpec) string {
	name := cfg.Name + "-" + graph.Name
	if filepath.Ext(graph.Name) == "" {
		name += DefaultChartExt
	}
	return filepath.Join(cfg.Directory, name)
}

// HTMLPath returns where the HTML page of cfg is written.
func HTMLPath(cfg descriptor.ReportConfig) string {
	return filepath.Join(cfg.Directory, cfg.Name+".html")
}

// Generate writes every chart and the HTML page of cfg. A chart that fails
// does not stop the others or the page; all errors are joined. It returns
// the files written.
func (g *Generator) Generate(cfg descriptor.ReportConfig, ds *Dataset) ([]string, error) {
	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	var written, graphs []string
	var errs []error
	for _, graph := range cfg.Graphs {
		path := ChartPath(cfg, graph)
		if err := removeExisting(path); err != nil {
			errs = append(errs, err)
			continue
		}
		g.logger.Info("Writing chart", "report", cfg.Name, "graph", graph.Name, "file", path)
		if err := RenderChart(path, graph, ds.Rows); err != nil {
			g.logger.Error("Failed to write chart", "report", cfg.Name, "graph", graph.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		written = append(written, path)
		graphs = append(graphs, filepath.Base(path))
		g.bus.Publish(events.ReportWrittenEvent{Report: cfg.Name, Kind: KindChart, Path: path})
	}

	tmpl, used, err := LoadTemplate(g.templateDir, cfg.TemplateFile)
	if err != nil {
		return written, errors.Join(append(errs, err)...)
	}
	if used == DefaultTemplateName && cfg.TemplateFile != "" {
		g.logger.Warn("Template not found, using built-in template", "report", cfg.Name,
			"template", cfg.TemplateFile, "dir", g.templateDir)
	}

	html, err := RenderHTML(tmpl, cfg, ds, graphs)
	if err != nil {
		return written, errors.Join(append(errs, err)...)
	}
	path := HTMLPath(cfg)
	if err := removeExisting(path); err != nil {
		return written, errors.Join(append(errs, err)...)
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return written, errors.Join(append(errs, fmt.Errorf("failed to write report: %w", err))...)
	}
	g.logger.Info("Wrote report", "report", cfg.Name, "file", path, "template", used)
	g.bus.Publish(events.ReportWrittenEvent{Report: cfg.Name, Kind: KindHTML, Path: path})
	written = append(written, path)

	return written, errors.Join(errs...)
}

// removeExisting deletes path so it is replaced rather than written over.
func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
