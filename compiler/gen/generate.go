package gen

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/schema"
)

// Generator writes the files of a configuration for a set of root models:
// one DDL script per dialect, one Go file per root model and a models.go
// file tying them together.
type Generator struct {
	cfg    *Config
	logger *slog.Logger
}

// NewGenerator returns a generator for cfg.
func NewGenerator(cfg *Config, logger *slog.Logger) (*Generator, error) {
	if cfg == nil {
		return nil, NewConfigError("Config", nil, "missing configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range cfg.Acronyms {
		AddAcronym(strings.ToUpper(w))
	}
	return &Generator{cfg: cfg, logger: logger}, nil
}

// Files returns the files generated for models.
func (g *Generator) Files(ctx context.Context, models ...*schema.Model) ([]File, error) {
	var files []File
	for _, name := range g.cfg.Dialects {
		d, err := sql.For(name)
		if err != nil {
			return nil, NewConfigError("Dialects", name, err.Error())
		}
		files = append(files, File{
			Name:   ddlFile(d),
			Render: func() ([]byte, error) { return DDL(ctx, d, g.cfg.Header, models...) },
		})
	}
	if g.cfg.SkipGo {
		return files, nil
	}
	for _, m := range models {
		files = append(files, GoFile(goFile(m), func() (*jen.File, error) {
			return ModelFile(g.cfg.Package, g.cfg.Header, m)
		}))
	}
	files = append(files, GoFile("models.go", func() (*jen.File, error) {
		return ModelsFile(g.cfg.Package, g.cfg.Header, models)
	}))
	return files, nil
}

// Generate writes the files of models into the target directory.
func (g *Generator) Generate(ctx context.Context, models ...*schema.Model) (*WriterMetrics, error) {
	files, err := g.Files(ctx, models...)
	if err != nil {
		return nil, err
	}
	w := NewWriter(g.cfg.Target).WithWorkers(g.cfg.Workers)
	if err := w.WriteAll(ctx, files...); err != nil {
		return nil, err
	}
	m := w.Metrics()
	g.logger.InfoContext(ctx, "generated files",
		"target", g.cfg.Target, "files", m.FilesGenerated, "bytes", m.TotalBytes)
	return m, nil
}
