package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Marcin0203/1und1-recruitment-task/internal/area"
	"github.com/Marcin0203/1und1-recruitment-task/internal/pipeline"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
	"github.com/Marcin0203/1und1-recruitment-task/internal/source"
)

// loadTimeout bounds how long a one-shot command waits for the first snapshot.
const loadTimeout = 10 * time.Second

// sourceFlags override the configured [source] section for one command.
type sourceFlags struct {
	kind string
	path string
}

func (f *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.kind, "source", "", "directory source: builtin, file or sqlite")
	fs.StringVar(&f.path, "path", "", "directory file or database for --source")
}

func (f *sourceFlags) options(env cliEnv) source.Options {
	opts := env.cfg.SourceOptions(env.dir)
	// A different kind must not inherit the configured path.
	if f.kind != "" && source.Kind(f.kind) != opts.Kind {
		opts.Kind = source.Kind(f.kind)
		opts.Path = ""
	}
	if f.path != "" {
		opts.Path = f.path
	}
	if opts.Kind == source.KindSQLite && opts.Path == "" {
		opts.Path = defaultDatabasePath(env)
	}
	return opts
}

// loadDirectory reads one snapshot from the selected source.
func loadDirectory(opts source.Options) ([]salesman.Salesman, error) {
	src, err := source.New(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	return source.Load(ctx, src)
}

// searchResult is the JSON document printed by search --json.
type searchResult struct {
	Query    string         `json:"query"`
	Kind     string         `json:"kind"`
	Count    int            `json:"count"`
	Salesmen []salesmanJSON `json:"salesmen"`
}

func handleSearch(env cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("search", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOutput := fs.Bool("json", false, "output as JSON")
	quiet := fs.BoolP("quiet", "q", false, "only set the exit code")
	var sf sourceFlags
	sf.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: salesdeck search <query> [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Print the salesmen whose areas overlap a postal code or prefix.")
		fmt.Fprintln(stderr, "Exits 1 when nobody covers the query.")
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
		out.Error("search takes exactly one query", ErrCodeInvalidArgs)
		return 1
	}
	raw := fs.Arg(0)

	q := area.Normalize(raw)
	if q.Kind == area.Invalid {
		out.Error(fmt.Sprintf("%q is not a postal code or prefix", strings.TrimSpace(raw)), ErrCodeInvalidQuery)
		return 1
	}

	list, err := loadDirectory(sf.options(env))
	if err != nil {
		out.Error(fmt.Sprintf("failed to load directory: %v", err), ErrCodeSourceFailed)
		return 1
	}

	matches := salesman.Filter(list, raw)
	cliLog.Debug("search",
		slog.String("query", q.String()),
		slog.String("kind", q.Kind.String()),
		slog.Int("matches", len(matches)))

	var human strings.Builder
	if len(matches) == 0 {
		human.WriteString("No salesman covers this area\n")
	} else {
		human.WriteString(formatRows(pipeline.Rows(matches, nil)))
		human.WriteString(formatTotal(len(matches)))
	}
	out.Print(human.String(), searchResult{
		Query:    q.String(),
		Kind:     q.Kind.String(),
		Count:    len(matches),
		Salesmen: toJSON(matches),
	})

	if len(matches) == 0 {
		return 1
	}
	return 0
}

// listResult is the JSON document printed by list --json.
type listResult struct {
	Source   string         `json:"source"`
	Count    int            `json:"count"`
	Salesmen []salesmanJSON `json:"salesmen"`
}

func handleList(env cliEnv, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOutput := fs.Bool("json", false, "output as JSON")
	var sf sourceFlags
	sf.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: salesdeck list [options]")
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

	out := NewCLIOutput(stdout, stderr, *jsonOutput, false)
	if fs.NArg() != 0 {
		out.Error(fmt.Sprintf("unexpected argument: %s", fs.Arg(0)), ErrCodeInvalidArgs)
		return 1
	}

	opts := sf.options(env)
	list, err := loadDirectory(opts)
	if err != nil {
		out.Error(fmt.Sprintf("failed to load directory: %v", err), ErrCodeSourceFailed)
		return 1
	}

	kind := opts.Kind
	if kind == "" {
		kind = source.KindBuiltin
	}

	human := "The directory is empty\n"
	if len(list) > 0 {
		human = formatRows(pipeline.Rows(list, nil)) + formatTotal(len(list))
	}
	out.Print(human, listResult{
		Source:   string(kind),
		Count:    len(list),
		Salesmen: toJSON(list),
	})
	return 0
}
