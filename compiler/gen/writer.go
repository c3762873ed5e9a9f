package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer renders generated files into a directory with parallel execution.
// Go sources are formatted with goimports before they are written.
type Writer struct {
	outDir  string
	workers int

	mu      sync.Mutex
	metrics *WriterMetrics
}

// WriterMetrics tracks generation performance.
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
	RenderTime     int64 // nanoseconds
	FormatTime     int64 // nanoseconds
	WriteTime      int64 // nanoseconds
}

// File is a file to generate. Render is called once, possibly
// concurrently with other files.
type File struct {
	Name   string // Path relative to the output directory.
	Render func() ([]byte, error)
}

// GoFile returns a file rendering a jennifer file.
func GoFile(name string, build func() (*jen.File, error)) File {
	return File{Name: name, Render: func() ([]byte, error) {
		f, err := build()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := f.Render(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}}
}

// NewWriter creates a writer into outDir.
func NewWriter(outDir string) *Writer {
	return &Writer{
		outDir:  outDir,
		workers: runtime.GOMAXPROCS(0),
		metrics: &WriterMetrics{},
	}
}

// WithWorkers sets the number of parallel workers.
func (w *Writer) WithWorkers(n int) *Writer {
	if n > 0 {
		w.workers = n
	}
	return w
}

// Metrics returns the generation metrics.
func (w *Writer) Metrics() *WriterMetrics {
	return w.metrics
}

// WriteAll generates all files in parallel.
func (w *Writer) WriteAll(ctx context.Context, files ...File) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.write(f)
			}
		})
	}
	return eg.Wait()
}

func (w *Writer) write(f File) error {
	start := time.Now()
	buf, err := f.Render()
	if err != nil {
		if errors.Is(err, ErrGenerate) {
			return err
		}
		return NewGenerationError("render", f.Name, "", err)
	}
	rendered := time.Now()

	fullPath := filepath.Join(w.outDir, f.Name)
	if strings.HasSuffix(f.Name, ".go") {
		formatted, err := imports.Process(fullPath, buf, nil)
		if err != nil {
			// Keep the unformatted source next to the target for debugging.
			debugPath := fullPath + ".error"
			_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
			_ = os.WriteFile(debugPath, buf, 0o644)
			return NewGenerationError("format", f.Name, "unformatted written to "+debugPath, err)
		}
		buf = formatted
	}
	formatted := time.Now()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return NewGenerationError("write", f.Name, "create directory", err)
	}
	if err := os.WriteFile(fullPath, buf, 0o644); err != nil {
		return NewGenerationError("write", f.Name, "", err)
	}

	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(buf))
	w.metrics.RenderTime += int64(rendered.Sub(start))
	w.metrics.FormatTime += int64(formatted.Sub(rendered))
	w.metrics.WriteTime += int64(time.Since(formatted))
	w.mu.Unlock()
	return nil
}
