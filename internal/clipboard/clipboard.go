// Package clipboard copies text to the system clipboard, falling back to
// the OSC 52 terminal escape when no native tool is available.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"

	"github.com/Marcin0203/1und1-recruitment-task/internal/platform"
)

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("clipboard: no content to copy")

// Result describes a successful copy.
type Result struct {
	Method   string // "system", "clip.exe" or "osc52"
	ByteSize int
}

// Copier writes to the clipboard. The zero value is not usable; use New.
type Copier struct {
	native  func(text string) (string, error)
	openTTY func() (io.WriteCloser, error)
	getenv  func(string) string
}

// New returns a Copier for the current process environment.
func New() *Copier {
	return &Copier{
		native:  copyNative,
		openTTY: openTTY,
		getenv:  os.Getenv,
	}
}

// Copy puts text on the clipboard. Native tools are tried first; OSC 52 is
// used only when the terminal is known to honor it.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, ErrEmpty
	}

	method, nativeErr := c.native(text)
	if nativeErr == nil {
		return Result{Method: method, ByteSize: len(text)}, nil
	}

	if !SupportsOSC52(c.getenv) {
		return Result{}, fmt.Errorf("clipboard: %w (install xclip, xsel or wl-copy)", nativeErr)
	}

	tty, err := c.openTTY()
	if err != nil {
		return Result{}, fmt.Errorf("clipboard: osc52: %w", err)
	}
	defer tty.Close()

	if _, err := io.WriteString(tty, sequence(text, c.getenv("TMUX") != "")); err != nil {
		return Result{}, fmt.Errorf("clipboard: osc52: %w", err)
	}
	return Result{Method: "osc52", ByteSize: len(text)}, nil
}

func copyNative(text string) (string, error) {
	// atotto does not know about WSL; clip.exe reaches the Windows clipboard.
	if platform.IsWSL() {
		cmd := exec.Command("clip.exe")
		cmd.Stdin = strings.NewReader(text)
		return "clip.exe", cmd.Run()
	}
	if clipboard.Unsupported {
		return "", errors.New("no native clipboard tool found")
	}
	return "system", clipboard.WriteAll(text)
}

// openTTY writes to the controlling terminal, bypassing stdout redirection.
func openTTY() (io.WriteCloser, error) {
	return os.OpenFile("/dev/tty", os.O_WRONLY, 0)
}

// sequence builds the OSC 52 escape, wrapped for tmux passthrough when needed.
func sequence(text string, inTmux bool) string {
	seq := osc52.New(text)
	if inTmux {
		seq = seq.Tmux()
	}
	return seq.String()
}

// SupportsOSC52 reports whether the terminal described by getenv is known
// to accept OSC 52 clipboard writes.
func SupportsOSC52(getenv func(string) string) bool {
	switch terminalName(getenv) {
	case "warp", "iterm2", "kitty", "alacritty", "wezterm", "windows-terminal", "vscode", "hyper":
		return true
	}
	return false
}

// terminalName identifies the terminal emulator from its environment.
func terminalName(getenv func(string) string) string {
	termProgram := getenv("TERM_PROGRAM")
	switch {
	case termProgram == "WarpTerminal" || getenv("WARP_IS_LOCAL_SHELL_SESSION") != "":
		return "warp"
	case termProgram == "iTerm.app" || getenv("ITERM_SESSION_ID") != "":
		return "iterm2"
	case getenv("TERM") == "xterm-kitty" || getenv("KITTY_WINDOW_ID") != "":
		return "kitty"
	case getenv("ALACRITTY_SOCKET") != "" || getenv("ALACRITTY_LOG") != "":
		return "alacritty"
	case termProgram == "vscode" || getenv("VSCODE_INJECTION") != "":
		return "vscode"
	case getenv("WT_SESSION") != "":
		return "windows-terminal"
	case termProgram == "WezTerm" || getenv("WEZTERM_PANE") != "":
		return "wezterm"
	case termProgram == "Apple_Terminal":
		return "apple-terminal"
	case termProgram == "Hyper":
		return "hyper"
	case termProgram != "":
		return strings.ToLower(termProgram)
	}
	return "unknown"
}
