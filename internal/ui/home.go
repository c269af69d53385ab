package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Marcin0203/1und1-recruitment-task/internal/clipboard"
	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/pipeline"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

var uiLog = logging.ForComponent(logging.CompUI)

// Searcher is the part of a pipeline.Session the view talks to.
type Searcher interface {
	QueryChanged(text string) error
	AgentActivated(id salesman.ID) error
	State() pipeline.DisplayState
}

// Copier puts text on the clipboard.
type Copier interface {
	Copy(text string) (clipboard.Result, error)
}

// stateMsg carries a new display state from the session.
type stateMsg struct {
	state pipeline.DisplayState
}

// stateClosedMsg signals that the session stopped publishing.
type stateClosedMsg struct{}

// copyResultMsg reports a finished clipboard copy.
type copyResultMsg struct {
	name   string
	result clipboard.Result
	err    error
}

// themeChangedMsg signals an OS dark mode switch.
type themeChangedMsg struct {
	dark bool
}

// Home is the search screen: a query input above the salesman list.
type Home struct {
	searcher Searcher
	states   <-chan pipeline.DisplayState

	input  textinput.Model
	state  pipeline.DisplayState
	cursor int
	offset int

	width  int
	height int

	copier Copier
	status string // result of the last copy, cleared on the next edit

	themeWatcher *ThemeWatcher
}

// HomeOption configures a Home.
type HomeOption func(*Home)

// WithThemeWatcher follows OS dark mode changes while the screen is open.
func WithThemeWatcher(tw *ThemeWatcher) HomeOption {
	return func(h *Home) { h.themeWatcher = tw }
}

// WithCopier replaces the system clipboard.
func WithCopier(c Copier) HomeOption {
	return func(h *Home) { h.copier = c }
}

// NewHome creates the search screen. states is usually the channel from
// pipeline.Session.Subscribe.
func NewHome(searcher Searcher, states <-chan pipeline.DisplayState, opts ...HomeOption) *Home {
	ti := textinput.New()
	ti.Placeholder = "Type a postal code or prefix"
	ti.Prompt = "› "
	ti.CharLimit = 16
	ti.Width = 40
	ti.Focus()

	h := &Home{
		searcher: searcher,
		states:   states,
		input:    ti,
		state:    searcher.State(),
		copier:   clipboard.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init starts listening for display states.
func (h *Home) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, listenForState(h.states)}
	if h.themeWatcher != nil {
		cmds = append(cmds, listenForThemeChange(h.themeWatcher))
	}
	return tea.Batch(cmds...)
}

// listenForState waits for the next display state.
func listenForState(ch <-chan pipeline.DisplayState) tea.Cmd {
	return func() tea.Msg {
		if ch == nil {
			return nil
		}
		ds, ok := <-ch
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg{state: ds}
	}
}

// listenForThemeChange waits for an OS dark mode switch.
func listenForThemeChange(tw *ThemeWatcher) tea.Cmd {
	return func() tea.Msg {
		isDark, ok := <-tw.ChangeChannel()
		if !ok {
			return nil
		}
		return themeChangedMsg{dark: isDark}
	}
}

// Update handles messages.
func (h *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		if w := msg.Width - 10; w > 10 {
			h.input.Width = w
		}
		h.clampCursor()
		return h, nil

	case stateMsg:
		h.state = msg.state
		h.clampCursor()
		return h, listenForState(h.states)

	case stateClosedMsg:
		return h, tea.Quit

	case themeChangedMsg:
		if msg.dark {
			InitTheme("dark")
		} else {
			InitTheme("light")
		}
		uiLog.Info("theme_changed", slog.String("theme", string(GetCurrentTheme())))
		return h, listenForThemeChange(h.themeWatcher)

	case copyResultMsg:
		if msg.err != nil {
			h.status = "Copy failed: " + msg.err.Error()
			uiLog.Warn("copy_failed", slog.String("error", msg.err.Error()))
		} else {
			h.status = fmt.Sprintf("Copied %s (%s)", msg.name, msg.result.Method)
			uiLog.Debug("copied", slog.String("method", msg.result.Method), slog.Int("bytes", msg.result.ByteSize))
		}
		return h, nil

	case tea.KeyMsg:
		return h.handleKey(msg)
	}

	var cmd tea.Cmd
	h.input, cmd = h.input.Update(msg)
	return h, cmd
}

func (h *Home) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return h, tea.Quit

	case "q":
		if h.input.Value() == "" {
			return h, tea.Quit
		}

	case "up", "ctrl+k":
		if h.cursor > 0 {
			h.cursor--
		}
		h.clampCursor()
		return h, nil

	case "down", "ctrl+j":
		if h.cursor < len(h.state.Rows)-1 {
			h.cursor++
		}
		h.clampCursor()
		return h, nil

	case "enter", " ":
		if row, ok := h.selected(); ok {
			return h, h.post(h.searcher.AgentActivated(row.ID))
		}
		return h, nil

	case "ctrl+y":
		if row, ok := h.selected(); ok {
			return h, copyRow(h.copier, row)
		}
		return h, nil

	case "esc":
		if h.input.Value() == "" {
			return h, nil
		}
		h.input.SetValue("")
		h.cursor = 0
		h.status = ""
		return h, h.post(h.searcher.QueryChanged(""))
	}

	before := h.input.Value()
	var cmd tea.Cmd
	h.input, cmd = h.input.Update(msg)
	if after := h.input.Value(); after != before {
		h.cursor = 0
		h.status = ""
		return h, tea.Batch(cmd, h.post(h.searcher.QueryChanged(after)))
	}
	return h, cmd
}

// post turns a session error into a command. A closed session ends the program.
func (h *Home) post(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if errors.Is(err, pipeline.ErrClosed) {
		return tea.Quit
	}
	uiLog.Warn("session_post_failed", slog.String("error", err.Error()))
	return nil
}

// copyRow copies "Name: areas" off the update loop; native tools may block.
func copyRow(c Copier, row pipeline.Row) tea.Cmd {
	text := row.Name
	if row.Areas != "" {
		text += ": " + row.Areas
	}
	return func() tea.Msg {
		res, err := c.Copy(text)
		return copyResultMsg{name: row.Name, result: res, err: err}
	}
}

func (h *Home) selected() (pipeline.Row, bool) {
	if h.cursor < 0 || h.cursor >= len(h.state.Rows) {
		return pipeline.Row{}, false
	}
	return h.state.Rows[h.cursor], true
}

// listHeight is how many terminal lines the row list may use.
func (h *Home) listHeight() int {
	if h.height <= 0 {
		return 0
	}
	// title, search box (3), banner, count, hint and spacing
	n := h.height - 10
	if n < 3 {
		n = 3
	}
	return n
}

func (h *Home) clampCursor() {
	if h.cursor >= len(h.state.Rows) {
		h.cursor = len(h.state.Rows) - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}

	limit := h.listHeight()
	if limit == 0 {
		h.offset = 0
		return
	}
	if h.cursor < h.offset {
		h.offset = h.cursor
	}
	// Expanded rows take two lines; keep the cursor row fully visible.
	for h.offset < h.cursor && h.linesBetween(h.offset, h.cursor) > limit {
		h.offset++
	}
}

func (h *Home) linesBetween(from, to int) int {
	n := 0
	for i := from; i <= to && i < len(h.state.Rows); i++ {
		n++
		if h.state.Rows[i].Expanded {
			n++
		}
	}
	return n
}

// View renders the screen.
func (h *Home) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("salesdeck"))
	b.WriteString(" ")
	b.WriteString(SubtitleStyle.Render("find the salesman for a postal code"))
	b.WriteString("\n")
	b.WriteString(SearchBoxStyle.Render(h.input.View()))
	b.WriteString("\n")

	if h.state.SourceErr != nil {
		b.WriteString(BannerStyle.Render("⚠ source unavailable: " + h.state.SourceErr.Error()))
		b.WriteString("\n")
		if h.state.Loaded {
			b.WriteString(DimStyle.Render("  showing the last known directory"))
			b.WriteString("\n")
		}
	}

	switch {
	case !h.state.Loaded:
		if h.state.SourceErr == nil {
			b.WriteString(DimStyle.Render("  Loading salesmen..."))
			b.WriteString("\n")
		}
	case len(h.state.Rows) == 0:
		b.WriteString(DimStyle.Italic(true).Render("  No salesman covers this area"))
		b.WriteString("\n")
	default:
		b.WriteString(h.renderRows())
	}

	b.WriteString("\n")
	b.WriteString(DimStyle.Render("  " + formatCount(len(h.state.Rows))))
	if h.status != "" {
		b.WriteString(DimStyle.Render("  " + h.status))
	}
	b.WriteString("\n")
	b.WriteString("  " + strings.Join([]string{
		MenuKey("↑↓", "move"),
		MenuKey("enter", "areas"),
		MenuKey("ctrl+y", "copy"),
		MenuKey("esc", "clear"),
		MenuKey("ctrl+c", "quit"),
	}, "  "))

	return b.String()
}

func (h *Home) renderRows() string {
	var b strings.Builder
	limit := h.listHeight()
	used := 0

	for i := h.offset; i < len(h.state.Rows); i++ {
		row := h.state.Rows[i]
		lines := 1
		if row.Expanded {
			lines = 2
		}
		if limit > 0 && used+lines > limit {
			break
		}
		used += lines

		b.WriteString(h.renderRow(row, i == h.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (h *Home) renderRow(row pipeline.Row, selected bool) string {
	arrow := "▸"
	if row.Expanded {
		arrow = "▾"
	}
	marker := "  "
	if selected {
		marker = "› "
	}

	name := truncate(row.Name, h.nameWidth())
	line := marker + Avatar(row.ShortLabel, row.ID) + " " + RowNameStyle.Render(name) + " " + ExpandStyle.Render(arrow)

	style := RowStyle
	if selected {
		style = RowSelectedStyle
	}
	out := style.Render(line)
	if row.Expanded {
		areas := row.Areas
		if areas == "" {
			areas = "no areas"
		}
		out += "\n" + RowAreasStyle.Render(truncate(areas, h.nameWidth()))
	}
	return out
}

func (h *Home) nameWidth() int {
	if h.width <= 0 {
		return 60
	}
	w := h.width - 14
	if w < 10 {
		w = 10
	}
	return w
}

// truncate shortens s to width terminal cells, counting wide runes twice.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// formatCount formats the result count
func formatCount(count int) string {
	if count == 0 {
		return "No results"
	}
	if count == 1 {
		return "1 result"
	}
	return lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", count)) + " results"
}
