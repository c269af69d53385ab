package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcin0203/1und1-recruitment-task/internal/config"
)

// TestMain points the data directory at a scratch location so no test can
// touch ~/.salesdeck.
func TestMain(m *testing.M) {
	home, err := os.MkdirTemp("", "salesdeck-cmd-*")
	if err != nil {
		panic(err)
	}
	os.Setenv("SALESDECK_HOME", home)

	code := m.Run()

	os.RemoveAll(home)
	os.Exit(code)
}

// isolate gives a test its own data directory and a fresh config cache.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("SALESDECK_HOME", home)
	t.Setenv("SALESDECK_SOURCE", "")
	t.Setenv("SALESDECK_SOURCE_PATH", "")
	config.ClearCache()
	t.Cleanup(config.ClearCache)
	return home
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "salesdeck v"+Version+"\n", out)

	code, out, _ = runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "search <query>")
	assert.Contains(t, out, "SALESDECK_HOME")
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown command "frobnicate"`)
}

func TestSearch_Builtin(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "search", "761")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Artem Titarenko")
	assert.Contains(t, out, "Bernd Schmitt")
	assert.NotContains(t, out, "Chris Krapp")
	assert.NotContains(t, out, "Alex Uber")
	assert.Contains(t, out, "2 salesmen")
}

func TestSearch_JSON(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "search", "86", "--json")
	require.Equal(t, 0, code)

	var res searchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "86*", res.Query)
	assert.Equal(t, "star_prefix", res.Kind)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "Alex Uber", res.Salesmen[0].Name)
	assert.Equal(t, []string{"86*"}, res.Salesmen[0].Areas)
	assert.Len(t, res.Salesmen[0].ID, 32)
}

func TestSearch_NoMatchExitsOne(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "search", "99999")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "No salesman covers this area")

	code, out, _ = runCLI(t, "search", "-q", "99999")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
}

func TestSearch_InvalidQuery(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "search", "76a")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `"76a" is not a postal code or prefix`)

	code, out, _ := runCLI(t, "search", "--json", "123456")
	assert.Equal(t, 1, code)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["success"])
	assert.Equal(t, ErrCodeInvalidQuery, res["code"])
}

func TestSearch_ArgumentCount(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "search")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "exactly one query")

	code, _, _ = runCLI(t, "search", "--help")
	assert.Equal(t, 0, code)
}

func TestSearch_FileSource(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "team.yaml", `
salesmen:
  - name: Dora Neu
    areas: ["10115", "101*"]
`)

	code, out, _ := runCLI(t, "search", "1011", "--source", "file", "--path", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Dora Neu")
	assert.Contains(t, out, "10115, 101*")
}

func TestSearch_SourceFromEnvironment(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "team.json", `{"salesmen":[{"name":"Emil Berg","areas":["20095"]}]}`)
	t.Setenv("SALESDECK_SOURCE", "file")
	t.Setenv("SALESDECK_SOURCE_PATH", path)
	config.ClearCache()

	code, out, _ := runCLI(t, "search", "20095")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Emil Berg")
}

func TestSearch_MissingFileFails(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "search", "761", "--source", "file", "--path", filepath.Join(t.TempDir(), "gone.toml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "failed to load directory")
}

func TestImportThenList(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, t.TempDir(), "team.toml", `
[[salesmen]]
name = "Frieda Kunz"
areas = ["80331", "803*"]

[[salesmen]]
name = "Gustav Lenz"
areas = []
`)

	code, out, _ := runCLI(t, "import", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Imported 2 salesmen")
	assert.FileExists(t, filepath.Join(home, config.DatabaseFileName))

	code, out, _ = runCLI(t, "list", "--source", "sqlite", "--json")
	require.Equal(t, 0, code)
	var res listResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "sqlite", res.Source)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, "Frieda Kunz", res.Salesmen[0].Name)
	assert.Equal(t, []string{}, res.Salesmen[1].Areas)

	code, out, _ = runCLI(t, "search", "803", "--source", "sqlite")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Frieda Kunz")
	assert.NotContains(t, out, "Gustav Lenz")
}

func TestImport_CustomDatabase(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "team.json", `{"salesmen":[{"name":"Hanna Ott","areas":["50667"]}]}`)
	db := filepath.Join(dir, "nested", "team.db")

	code, out, _ := runCLI(t, "import", path, "--db", db, "--json")
	require.Equal(t, 0, code)
	var res importResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, db, res.Database)
	assert.Equal(t, 1, res.Count)

	code, out, _ = runCLI(t, "list", "--source", "sqlite", "--path", db)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Hanna Ott")
}

func TestImport_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no file", []string{"import"}, "exactly one file"},
		{"unsupported extension", []string{"import", writeFile(t, dir, "team.csv", "x")}, "unsupported directory format"},
		{"missing file", []string{"import", filepath.Join(dir, "gone.yaml")}, "failed to read"},
		{"empty name", []string{"import", writeFile(t, dir, "bad.json", `{"salesmen":[{"name":"","areas":[]}]}`)}, "empty name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.wantErr)
		})
	}
}

func TestList_EmptyDatabase(t *testing.T) {
	isolate(t)

	code, out, _ := runCLI(t, "list", "--source", "sqlite")
	require.Equal(t, 0, code)
	assert.Equal(t, "The directory is empty\n", out)
}

func TestParseColorProfile(t *testing.T) {
	tests := []struct {
		in   string
		want termenv.Profile
		ok   bool
	}{
		{"truecolor", termenv.TrueColor, true},
		{"24bit", termenv.TrueColor, true},
		{"256", termenv.ANSI256, true},
		{"ANSI", termenv.ANSI, true},
		{"none", termenv.Ascii, true},
		{"", termenv.Ascii, false},
		{"rainbow", termenv.Ascii, false},
	}
	for _, tt := range tests {
		got, ok := parseColorProfile(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestDetectColorProfile(t *testing.T) {
	envOf := func(kv map[string]string) func(string) string {
		return func(k string) string { return kv[k] }
	}

	assert.Equal(t, termenv.TrueColor, detectColorProfile(envOf(map[string]string{"COLORTERM": "truecolor"})))
	assert.Equal(t, termenv.TrueColor, detectColorProfile(envOf(map[string]string{"TERM": "xterm-kitty"})))
	assert.Equal(t, termenv.TrueColor, detectColorProfile(envOf(map[string]string{"TERM": "tmux-256color"})))
	assert.Equal(t, termenv.TrueColor, detectColorProfile(envOf(map[string]string{"WT_SESSION": "1"})))
	assert.Equal(t, termenv.ANSI256, detectColorProfile(envOf(map[string]string{"TERM": "vt100"})))
}
