package salesman

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"dir.json":      FormatJSON,
		"dir.TOML":      FormatTOML,
		"/a/b/dir.yaml": FormatYAML,
		"dir.yml":       FormatYAML,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("dir.csv")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDecode_AllFormats(t *testing.T) {
	want := []Salesman{
		{Name: "Artem Titarenko", Areas: []string{"76133"}},
		{Name: "Alex Uber", Areas: []string{"86*", "12345"}},
	}

	docs := map[Format]string{
		FormatJSON: `{"salesmen":[
			{"name":"Artem Titarenko","areas":["76133"]},
			{"name":"Alex Uber","areas":["86*"," 12345 "]}]}`,
		FormatTOML: `
[[salesmen]]
name = "Artem Titarenko"
areas = ["76133"]

[[salesmen]]
name = "Alex Uber"
areas = ["86*", "12345"]
`,
		FormatYAML: `
salesmen:
  - name: Artem Titarenko
    areas: ["76133"]
  - name: Alex Uber
    areas: ["86*", "12345"]
`,
	}

	for format, doc := range docs {
		t.Run(string(format), func(t *testing.T) {
			got, err := Decode([]byte(doc), format)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecode_EmptyDocument(t *testing.T) {
	got, err := Decode([]byte(`{}`), FormatJSON)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"salesmen":[{"name":"  ","areas":[]}]}`), FormatJSON)
	assert.True(t, errors.Is(err, ErrEmptyName))

	_, err = Decode([]byte(`{"people":[]}`), FormatJSON)
	assert.Error(t, err)

	_, err = Decode([]byte(`salesmen = [`), FormatTOML)
	assert.Error(t, err)

	_, err = Decode([]byte(`x`), Format("csv"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
