package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dailynotes/internal"
	"github.com/starford/dailynotes/internal/mcpserver"
	pkgconfig "github.com/starford/dailynotes/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	path := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", path))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// open loads config and initializes the store with logs on stderr, so
// command output on stdout stays clean.
func open(ctx context.Context, cmd *cli.Command) (*internal.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return mcpserver.New(rt.Service, version).ServeStdio()
}

func importDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: import <dir>")
	}
	rt, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.Service.ImportDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "imported %d notes, skipped %d\n", res.Imported, len(res.Skipped))
	if res.Warning != nil {
		fmt.Fprintf(cmd.Root().ErrWriter, "warning: %v\n", res.Warning)
	}
	return nil
}

func exportPDF(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	doc, err := rt.Service.ExportPDF(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	out := cmd.String("out")
	if out == "-" {
		_, err = cmd.Root().Writer.Write(doc.Bytes)
		return err
	}
	if err := os.WriteFile(out, doc.Bytes, 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %s (%d pages)\n", out, doc.Pages)
	return nil
}

func runBackup(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.Service.Backup(ctx) {
		return fmt.Errorf("backup failed")
	}
	fmt.Fprintln(cmd.Root().Writer, "backup complete")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "dailynotes",
		Usage:   "Local-first daily notes with voice clips, PDF export and backups",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Import Markdown files from a directory",
				ArgsUsage: "<dir>",
				Action:    importDir,
			},
			{
				Name:  "export",
				Usage: "Export all notes to a PDF file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file, - for stdout",
						Value:   "notes.pdf",
					},
				},
				Action: exportPDF,
			},
			{
				Name:   "backup",
				Usage:  "Back up the note collection",
				Action: runBackup,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
