package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/Marcin0203/1und1-recruitment-task/internal/config"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
	"github.com/Marcin0203/1und1-recruitment-task/internal/source"
	"github.com/Marcin0203/1und1-recruitment-task/internal/statedb"
)

func defaultDatabasePath(env cliEnv) string {
	return filepath.Join(env.dir, config.DatabaseFileName)
}

// importResult is the JSON document printed by import --json.
type importResult struct {
	Success  bool   `json:"success"`
	File     string `json:"file"`
	Database string `json:"database"`
	Count    int    `json:"count"`
}

// handleImport replaces the sqlite directory with the records of a file.
// A running TUI on the same database picks the change up on its next poll.
func handleImport(env cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOutput := fs.Bool("json", false, "output as JSON")
	quiet := fs.BoolP("quiet", "q", false, "minimal output")
	dbPath := fs.String("db", "", "sqlite database (default: salesmen.db in the data directory)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: salesdeck import <file> [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Load a .json, .toml or .yaml directory into the sqlite store.")
		fmt.Fprintln(stderr, "The stored directory is replaced, not merged.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 1
	}

	out := NewCLIOutput(stdout, stderr, *jsonOutput, *quiet)
	if fs.NArg() != 1 {
		out.Error("import takes exactly one file", ErrCodeInvalidArgs)
		return 1
	}
	file := fs.Arg(0)

	format, err := salesman.FormatFromPath(file)
	if err != nil {
		out.Error(err.Error(), ErrCodeInvalidArgs)
		return 1
	}
	data, err := os.ReadFile(file)
	if err != nil {
		out.Error(fmt.Sprintf("failed to read %s: %v", file, err), ErrCodeInvalidArgs)
		return 1
	}
	list, err := salesman.Decode(data, format)
	if err != nil {
		out.Error(fmt.Sprintf("%s: %v", file, err), ErrCodeDecodeFailed)
		return 1
	}

	target := *dbPath
	if target == "" {
		target = defaultDatabasePath(env)
	}
	if err := importInto(target, list); err != nil {
		out.Error(err.Error(), ErrCodeStorageFailed)
		return 1
	}

	cliLog.Info("import_done",
		slog.String("file", file),
		slog.String("database", target),
		slog.Int("count", len(list)))

	out.Success(fmt.Sprintf("Imported %d salesmen into %s", len(list), target), importResult{
		Success:  true,
		File:     file,
		Database: target,
		Count:    len(list),
	})
	return 0
}

func importInto(path string, list []salesman.Salesman) (err error) {
	db, err := statedb.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("statedb: close: %w", cerr)
		}
	}()
	if err := db.Migrate(); err != nil {
		return err
	}
	return source.Import(db, list)
}
