// rowsetc generates DDL scripts and Go model definitions from YAML model
// files, and plans or applies schema changes against a live database.
//
//	rowsetc gen  -config rowsetc.yaml [-watch]
//	rowsetc ddl  -models models.yaml -dialect postgres
//	rowsetc plan -models models.yaml -dialect sqlite -dsn file:app.db [-apply]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/rowset/compiler/gen"
	"github.com/syssam/rowset/compiler/load"
	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/dialect/sql/schema"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "rowsetc: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: rowsetc <command> [flags]

commands:
  gen   generate the files configured in a rowsetc.yaml file
  ddl   print the CREATE statements of a model file
  plan  print or apply the changes migrating a database to a model file
`

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	switch cmd, args := args[0], args[1:]; cmd {
	case "gen":
		return genCmd(ctx, args, stderr)
	case "ddl":
		return ddlCmd(ctx, args, stdout, stderr)
	case "plan":
		return planCmd(ctx, args, stdout, stderr)
	case "help", "-h", "-help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func genCmd(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		config  = fs.String("config", "rowsetc.yaml", "configuration file")
		watch   = fs.Bool("watch", false, "regenerate when the model file changes")
		verbose = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(stderr, *verbose)
	cfg, err := gen.LoadConfig(*config)
	if err != nil {
		return err
	}
	if cfg.Models == "" {
		return gen.NewConfigError("Models", nil, "missing model file")
	}
	// Paths in the config are relative to its directory.
	base := filepath.Dir(*config)
	models := resolve(base, cfg.Models)
	cfg.Target = resolve(base, cfg.Target)
	g, err := gen.NewGenerator(cfg, logger)
	if err != nil {
		return err
	}
	generate := func() error {
		ms, err := load.File(models)
		if err != nil {
			return err
		}
		_, err = g.Generate(ctx, ms...)
		return err
	}
	if err := generate(); err != nil {
		if !*watch {
			return err
		}
		logger.ErrorContext(ctx, "generation failed", "error", err)
	}
	if !*watch {
		return nil
	}
	return watchFile(ctx, models, logger, generate)
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// watchFile calls fn after every change of path until ctx is done. Bursts
// of events are coalesced.
func watchFile(ctx context.Context, path string, logger *slog.Logger, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// Editors replace files on save; watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.InfoContext(ctx, "watching model file", "path", path)
	const settle = 100 * time.Millisecond
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.DebugContext(ctx, "model file changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			pending = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watch error", "error", err)
		case <-pending:
			pending = nil
			if err := fn(); err != nil {
				logger.ErrorContext(ctx, "generation failed", "error", err)
			}
		}
	}
}

func ddlCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ddl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		models = fs.String("models", "models.yaml", "model file")
		name   = fs.String("dialect", "postgres", "target dialect")
		header = fs.String("header", gen.DefaultHeader, "script header")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := sql.For(*name)
	if err != nil {
		return err
	}
	ms, err := load.File(*models)
	if err != nil {
		return err
	}
	buf, err := gen.DDL(ctx, d, *header, ms...)
	if err != nil {
		return err
	}
	_, err = stdout.Write(buf)
	return err
}

func planCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		models       = fs.String("models", "models.yaml", "model file")
		name         = fs.String("dialect", "sqlite", "database dialect")
		dsn          = fs.String("dsn", "", "data source name")
		schemaName   = fs.String("schema", "", "database schema; defaults to the connection schema")
		apply        = fs.Bool("apply", false, "apply the changes instead of printing them")
		allowDrops   = fs.Bool("allow-drops", false, "allow dropping tables, columns and indexes")
		allowNotNull = fs.Bool("allow-not-null", false, "allow making nullable columns NOT NULL")
		verbose      = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return errors.New("plan: missing -dsn")
	}
	logger := newLogger(stderr, *verbose)
	ms, err := load.File(*models)
	if err != nil {
		return err
	}
	drv, err := sql.Open(*name, *dsn)
	if err != nil {
		return err
	}
	defer drv.Close()

	checks := []schema.ValidateOption{}
	if *allowDrops {
		checks = append(checks, schema.AllowDropTable(), schema.AllowDropColumn(), schema.AllowDropIndex())
	}
	if *allowNotNull {
		checks = append(checks, schema.AllowNullToNotNull())
	}
	m, err := schema.NewMigrate(drv,
		schema.WithSchemaName(*schemaName),
		schema.WithMigrateLogger(logger),
		schema.WithValidation(checks...),
	)
	if err != nil {
		return err
	}
	if *apply {
		return m.Create(ctx, ms...)
	}
	plan, err := m.Plan(ctx, ms...)
	if err != nil {
		return err
	}
	if len(plan.Changes) == 0 {
		fmt.Fprintln(stdout, "-- schema is up to date")
		return nil
	}
	for _, c := range plan.Changes {
		if c.Comment != "" {
			fmt.Fprintf(stdout, "-- %s\n", c.Comment)
		}
		fmt.Fprintf(stdout, "%s;\n", c.Cmd)
	}
	return nil
}
