package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Marcin0203/1und1-recruitment-task/internal/pipeline"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

// CLIOutput writes command results either as human-readable text or JSON.
type CLIOutput struct {
	out       io.Writer
	errOut    io.Writer
	jsonMode  bool
	quietMode bool
}

// NewCLIOutput creates a new CLI output handler
func NewCLIOutput(out, errOut io.Writer, jsonMode, quietMode bool) *CLIOutput {
	return &CLIOutput{
		out:       out,
		errOut:    errOut,
		jsonMode:  jsonMode,
		quietMode: quietMode,
	}
}

// Success prints a success message or JSON response
func (c *CLIOutput) Success(message string, data interface{}) {
	if c.quietMode {
		return
	}
	if c.jsonMode {
		c.printJSON(data)
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", successSymbol, message)
}

// Error prints an error message or JSON error response
func (c *CLIOutput) Error(message string, code string) {
	if c.jsonMode {
		c.printJSON(map[string]interface{}{
			"success": false,
			"error":   message,
			"code":    code,
		})
		return
	}
	fmt.Fprintf(c.errOut, "Error: %s\n", message)
}

// Print prints data (human-readable or JSON)
func (c *CLIOutput) Print(humanOutput string, jsonData interface{}) {
	if c.quietMode {
		return
	}
	if c.jsonMode {
		c.printJSON(jsonData)
		return
	}
	fmt.Fprint(c.out, humanOutput)
}

func (c *CLIOutput) printJSON(data interface{}) {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(c.errOut, "Error: failed to format JSON: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, string(output))
}

// Symbols for human-readable output
const (
	successSymbol = "✓"
	bulletSymbol  = "•"
)

// Error codes
const (
	ErrCodeInvalidArgs   = "INVALID_ARGS"
	ErrCodeInvalidQuery  = "INVALID_QUERY"
	ErrCodeSourceFailed  = "SOURCE_FAILED"
	ErrCodeDecodeFailed  = "DECODE_FAILED"
	ErrCodeStorageFailed = "STORAGE_FAILED"
)

// salesmanJSON is the JSON shape of one directory entry.
type salesmanJSON struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Areas []string `json:"areas"`
}

func toJSON(list []salesman.Salesman) []salesmanJSON {
	out := make([]salesmanJSON, 0, len(list))
	for _, s := range list {
		areas := s.Areas
		if areas == nil {
			areas = []string{}
		}
		out = append(out, salesmanJSON{ID: string(s.ID()), Name: s.Name, Areas: areas})
	}
	return out
}

// formatRows renders rows as an aligned table: badge, name, areas.
func formatRows(rows []pipeline.Row) string {
	nameWidth := 4
	for _, r := range rows {
		if n := len([]rune(r.Name)); n > nameWidth {
			nameWidth = n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    %-*s  %s\n", nameWidth, "NAME", "AREAS")
	for _, r := range rows {
		areas := r.Areas
		if areas == "" {
			areas = "-"
		}
		pad := nameWidth - len([]rune(r.Name))
		fmt.Fprintf(&b, "%s %s %s%s  %s\n", bulletSymbol, r.ShortLabel, r.Name, strings.Repeat(" ", pad), areas)
	}
	return b.String()
}

// formatTotal is the summary line under a table.
func formatTotal(n int) string {
	if n == 1 {
		return "1 salesman\n"
	}
	return fmt.Sprintf("%d salesmen\n", n)
}
