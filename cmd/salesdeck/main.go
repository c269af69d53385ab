package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/Marcin0203/1und1-recruitment-task/internal/config"
	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/pipeline"
	"github.com/Marcin0203/1und1-recruitment-task/internal/source"
	"github.com/Marcin0203/1und1-recruitment-task/internal/ui"
)

const Version = "0.3.0"

var cliLog = logging.ForComponent(logging.CompCLI)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Fprintf(stdout, "salesdeck v%s\n", Version)
			return 0
		case "help", "--help", "-h":
			printHelp(stdout)
			return 0
		}
	}

	env, err := setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logging.Shutdown()

	if len(args) == 0 {
		return runTUI(env, stderr)
	}

	switch args[0] {
	case "search", "s":
		return handleSearch(env, args[1:], stdout, stderr)
	case "list", "ls":
		return handleList(env, args[1:], stdout, stderr)
	case "import":
		return handleImport(env, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", args[0])
		fmt.Fprintln(stderr, "Run 'salesdeck help' for usage.")
		return 1
	}
}

// cliEnv is what every command needs after startup.
type cliEnv struct {
	cfg *config.Config
	dir string
}

// setup loads the configuration and starts logging. A broken config file
// is reported but the defaults are used.
func setup(stderr io.Writer) (cliEnv, error) {
	dir, err := config.Dir()
	if err != nil {
		return cliEnv{}, err
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
	}
	initColorProfile(cfg.Color)

	logging.Init(cfg.LoggingConfig(dir))
	if cfg.Logs.Enabled {
		watchDumpSignal(dir)
	}
	return cliEnv{cfg: cfg, dir: dir}, nil
}

// watchDumpSignal makes SIGUSR1 write the log ring buffer next to debug.log.
func watchDumpSignal(dir string) {
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		for range usr1 {
			dumpPath := filepath.Join(dir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
			if err := logging.DumpRingBuffer(dumpPath); err != nil {
				cliLog.Error("crash_dump_failed", slog.String("error", err.Error()))
			} else {
				cliLog.Info("crash_dump_written", slog.String("path", dumpPath))
			}
		}
	}()
}

// initColorProfile configures the lipgloss color profile. SALESDECK_COLOR
// (truecolor, 256, 16, none) wins over detection.
func initColorProfile(override string) {
	if p, ok := parseColorProfile(override); ok {
		lipgloss.SetColorProfile(p)
		return
	}
	lipgloss.SetColorProfile(detectColorProfile(os.Getenv))
}

func parseColorProfile(s string) (termenv.Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truecolor", "true", "24bit":
		return termenv.TrueColor, true
	case "256", "ansi256":
		return termenv.ANSI256, true
	case "16", "ansi", "basic":
		return termenv.ANSI, true
	case "none", "off", "ascii":
		return termenv.Ascii, true
	}
	return termenv.Ascii, false
}

// trueColorTerms are TERM values of emulators that render 24-bit color
// even when COLORTERM is not set.
var trueColorTerms = []string{
	"xterm-256color",
	"screen-256color",
	"tmux-256color",
	"xterm-direct",
	"alacritty",
	"kitty",
	"wezterm",
}

func detectColorProfile(getenv func(string) string) termenv.Profile {
	if ct := getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		return termenv.TrueColor
	}
	termName := getenv("TERM")
	for _, t := range trueColorTerms {
		if strings.Contains(termName, t) {
			return termenv.TrueColor
		}
	}
	if getenv("WT_SESSION") != "" || getenv("ITERM_SESSION_ID") != "" ||
		getenv("TERMINAL_EMULATOR") != "" || getenv("KONSOLE_VERSION") != "" {
		return termenv.TrueColor
	}
	return termenv.ANSI256
}

// runTUI starts the interactive search screen.
func runTUI(env cliEnv, stderr io.Writer) int {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(stderr, "Error: salesdeck needs an interactive terminal")
		fmt.Fprintln(stderr, "Use 'salesdeck search <postal code>' in scripts.")
		return 1
	}

	src, err := source.New(env.cfg.SourceOptions(env.dir))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess := pipeline.New(src, pipeline.WithQuietPeriod(env.cfg.QuietPeriod()))
	states, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	ui.InitTheme(env.cfg.ResolveTheme())
	var opts []ui.HomeOption
	if env.cfg.GetTheme() == "system" {
		if tw := ui.NewThemeWatcher(ctx); tw != nil {
			defer tw.Close()
			opts = append(opts, ui.WithThemeWatcher(tw))
		}
	}

	sessErr := make(chan error, 1)
	go func() { sessErr <- sess.Run(ctx) }()

	cliLog.Info("tui_started",
		slog.Int("pid", os.Getpid()),
		slog.String("source", string(env.cfg.SourceOptions(env.dir).Kind)),
		slog.Duration("quiet_period", env.cfg.QuietPeriod()))

	p := tea.NewProgram(ui.NewHome(sess, states, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	if err := <-sessErr; err != nil && !errors.Is(err, context.Canceled) {
		cliLog.Error("session_failed", slog.String("error", err.Error()))
	}
	if runErr != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "salesdeck v%s\n", Version)
	fmt.Fprintln(w, "Find the salesman responsible for a postal code")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: salesdeck [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  (none)              Start the interactive search")
	fmt.Fprintln(w, "  search <query>      Print the salesmen covering a postal code or prefix")
	fmt.Fprintln(w, "  list                Print the whole directory")
	fmt.Fprintln(w, "  import <file>       Load a JSON, TOML or YAML directory into SQLite")
	fmt.Fprintln(w, "  version             Show version")
	fmt.Fprintln(w, "  help                Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Queries:")
	fmt.Fprintln(w, "  76133               exact postal code")
	fmt.Fprintln(w, "  761 or 761*         every code starting with 761")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  SALESDECK_HOME         data directory (default ~/.salesdeck)")
	fmt.Fprintln(w, "  SALESDECK_SOURCE       builtin, file or sqlite")
	fmt.Fprintln(w, "  SALESDECK_SOURCE_PATH  directory file or database")
	fmt.Fprintln(w, "  SALESDECK_DEBOUNCE_MS  search quiet period")
	fmt.Fprintln(w, "  SALESDECK_THEME        dark, light or system")
	fmt.Fprintln(w, "  SALESDECK_COLOR        truecolor, 256, 16 or none")
	fmt.Fprintln(w, "  SALESDECK_DEBUG=1      write ~/.salesdeck/debug.log")
}
