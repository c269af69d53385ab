package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcin0203/1und1-recruitment-task/internal/clipboard"
	"github.com/Marcin0203/1und1-recruitment-task/internal/pipeline"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

// fakeSearcher records what the view posts.
type fakeSearcher struct {
	queries     []string
	activations []salesman.ID
	state       pipeline.DisplayState
	err         error
}

func (f *fakeSearcher) QueryChanged(text string) error {
	f.queries = append(f.queries, text)
	return f.err
}

func (f *fakeSearcher) AgentActivated(id salesman.ID) error {
	f.activations = append(f.activations, id)
	return f.err
}

func (f *fakeSearcher) State() pipeline.DisplayState { return f.state }

// fakeCopier records copied text.
type fakeCopier struct {
	copied []string
	err    error
}

func (f *fakeCopier) Copy(text string) (clipboard.Result, error) {
	f.copied = append(f.copied, text)
	if f.err != nil {
		return clipboard.Result{}, f.err
	}
	return clipboard.Result{Method: "fake", ByteSize: len(text)}, nil
}

func loadedState(expanded ...salesman.ID) pipeline.DisplayState {
	flags := map[salesman.ID]bool{}
	for _, id := range expanded {
		flags[id] = true
	}
	return pipeline.DisplayState{
		Rows:   pipeline.Rows(salesman.Builtin(), flags),
		Loaded: true,
	}
}

func typeText(h *Home, text string) {
	for _, r := range text {
		h.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestHome_EveryKeystrokePostsFullText(t *testing.T) {
	fs := &fakeSearcher{}
	h := NewHome(fs, nil)

	typeText(h, "761")

	assert.Equal(t, []string{"7", "76", "761"}, fs.queries)
	assert.Equal(t, "761", h.input.Value())
}

func TestHome_EscClearsQuery(t *testing.T) {
	fs := &fakeSearcher{}
	h := NewHome(fs, nil)
	typeText(h, "86")

	h.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, "", h.input.Value())
	assert.Equal(t, []string{"8", "86", ""}, fs.queries)

	// Esc on an empty input posts nothing.
	h.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, fs.queries, 3)
}

func TestHome_CursorAndActivation(t *testing.T) {
	fs := &fakeSearcher{}
	h := NewHome(fs, nil)
	h.Update(stateMsg{state: loadedState()})

	h.Update(tea.KeyMsg{Type: tea.KeyDown})
	h.Update(tea.KeyMsg{Type: tea.KeyDown})
	h.Update(tea.KeyMsg{Type: tea.KeyUp})
	h.Update(tea.KeyMsg{Type: tea.KeyEnter})
	h.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	builtin := salesman.Builtin()
	assert.Equal(t, []salesman.ID{builtin[1].ID(), builtin[1].ID()}, fs.activations)
	assert.Empty(t, fs.queries, "toggling must not touch the query")
}

func TestHome_CursorClampedWhenListShrinks(t *testing.T) {
	h := NewHome(&fakeSearcher{}, nil)
	h.Update(stateMsg{state: loadedState()})
	for i := 0; i < 10; i++ {
		h.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 3, h.cursor)

	h.Update(stateMsg{state: pipeline.DisplayState{Loaded: true, Rows: pipeline.Rows(salesman.Builtin()[:1], nil)}})
	assert.Equal(t, 0, h.cursor)
}

func TestHome_Quit(t *testing.T) {
	fs := &fakeSearcher{}
	h := NewHome(fs, nil)

	_, cmd := h.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, isQuit(cmd), "q on an empty input quits")

	typeText(h, "7")
	_, cmd = h.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.False(t, isQuit(cmd), "q with text goes to the input")
	assert.Equal(t, "7q", h.input.Value())

	_, cmd = h.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))

	_, cmd = h.Update(stateClosedMsg{})
	assert.True(t, isQuit(cmd))
}

func TestHome_ClosedSessionQuits(t *testing.T) {
	fs := &fakeSearcher{err: pipeline.ErrClosed}
	h := NewHome(fs, nil)

	_, cmd := h.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'7'}})
	require.NotNil(t, cmd)
	msgs := collect(cmd)
	assert.Contains(t, msgs, tea.Msg(tea.QuitMsg{}))
}

// collect runs cmd and flattens batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestHome_StateListenerReArms(t *testing.T) {
	states := make(chan pipeline.DisplayState, 1)
	h := NewHome(&fakeSearcher{}, states)

	states <- loadedState()
	msg := listenForState(states)()
	_, cmd := h.Update(msg)
	assert.Len(t, h.state.Rows, 4)
	require.NotNil(t, cmd, "listener should be re-armed")

	close(states)
	assert.Equal(t, stateClosedMsg{}, cmd())
}

func TestHome_ViewStates(t *testing.T) {
	fs := &fakeSearcher{}
	h := NewHome(fs, nil)
	h.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Contains(t, h.View(), "Loading salesmen")

	h.Update(stateMsg{state: loadedState(salesman.Builtin()[2].ID())})
	view := h.View()
	for _, name := range []string{"Artem Titarenko", "Bernd Schmitt", "Chris Krapp", "Alex Uber"} {
		assert.Contains(t, view, name)
	}
	assert.Contains(t, view, "762*", "expanded row shows its areas")
	assert.NotContains(t, view, "7619*", "collapsed rows hide their areas")
	assert.Contains(t, view, "4 results")

	h.Update(stateMsg{state: pipeline.DisplayState{Loaded: true, Rows: []pipeline.Row{}}})
	assert.Contains(t, h.View(), "No salesman covers this area")
}

func TestHome_ViewSourceErrorBanner(t *testing.T) {
	h := NewHome(&fakeSearcher{}, nil)
	state := loadedState()
	state.SourceErr = errors.New("permission denied")
	h.Update(stateMsg{state: state})

	view := h.View()
	assert.Contains(t, view, "source unavailable: permission denied")
	assert.Contains(t, view, "Alex Uber", "last good rows stay visible")
}

func TestHome_ScrollKeepsCursorVisible(t *testing.T) {
	list := make([]salesman.Salesman, 0, 30)
	for i := 0; i < 30; i++ {
		list = append(list, salesman.Salesman{Name: "Salesman " + string(rune('A'+i%26)) + strings.Repeat("x", i), Areas: []string{"1*"}})
	}
	h := NewHome(&fakeSearcher{}, nil)
	h.Update(tea.WindowSizeMsg{Width: 80, Height: 15})
	h.Update(stateMsg{state: pipeline.DisplayState{Loaded: true, Rows: pipeline.Rows(list, nil)}})

	for i := 0; i < 29; i++ {
		h.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 29, h.cursor)
	assert.Contains(t, h.View(), list[29].Name[:20])
	assert.NotContains(t, h.View(), list[0].Name+" ")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Alex Uber", truncate("Alex Uber", 20))
	assert.Equal(t, "Alex…", truncate("Alex Uber", 5))
	// Wide runes count as two cells.
	assert.Equal(t, "日本…", truncate("日本語の名前", 5))
}

func TestHome_CopySelectedRow(t *testing.T) {
	fc := &fakeCopier{}
	h := NewHome(&fakeSearcher{}, nil, WithCopier(fc))
	h.Update(stateMsg{state: loadedState()})
	h.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := h.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	h.Update(cmd())

	assert.Equal(t, []string{"Bernd Schmitt: 7619*"}, fc.copied)
	assert.Contains(t, h.View(), "Copied Bernd Schmitt (fake)")

	// The next edit clears the status line.
	typeText(h, "7")
	assert.NotContains(t, h.View(), "Copied")
}

func TestHome_CopyFailureShown(t *testing.T) {
	fc := &fakeCopier{err: errors.New("no tool")}
	h := NewHome(&fakeSearcher{}, nil, WithCopier(fc))
	h.Update(stateMsg{state: loadedState()})

	_, cmd := h.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	h.Update(cmd())
	assert.Contains(t, h.View(), "Copy failed: no tool")
}

func TestHome_CopyWithoutRowsIsNoop(t *testing.T) {
	fc := &fakeCopier{}
	h := NewHome(&fakeSearcher{}, nil, WithCopier(fc))

	_, cmd := h.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Nil(t, cmd)
	assert.Empty(t, fc.copied)
}
