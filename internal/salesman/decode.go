package salesman

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a directory file.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("salesman: unsupported directory format")

// Directory is the on-disk document shape shared by every format:
//
//	[[salesmen]]
//	name = "Artem Titarenko"
//	areas = ["76133"]
type Directory struct {
	Salesmen []Salesman `json:"salesmen" toml:"salesmen" yaml:"salesmen"`
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Decode parses a directory document and validates every record.
func Decode(data []byte, format Format) ([]Salesman, error) {
	var dir Directory
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&dir); err != nil {
			return nil, fmt.Errorf("salesman: decode json: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&dir); err != nil {
			return nil, fmt.Errorf("salesman: decode toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &dir); err != nil {
			return nil, fmt.Errorf("salesman: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	for i, s := range dir.Salesmen {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("salesman: record %d: %w", i, err)
		}
		for j, a := range s.Areas {
			dir.Salesmen[i].Areas[j] = strings.TrimSpace(a)
		}
	}
	if dir.Salesmen == nil {
		dir.Salesmen = []Salesman{}
	}
	return dir.Salesmen, nil
}
