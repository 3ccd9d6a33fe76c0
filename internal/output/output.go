// Package output renders command results as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// AllFormats returns the supported formats.
func AllFormats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML}
}

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// Writer writes values in one format. It is safe for concurrent use.
type Writer struct {
	format Format

	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Format returns the writer's format.
func (w *Writer) Format() Format {
	return w.format
}

// Write outputs v. Text output uses fmt.Stringer when v implements it.
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		if s, ok := v.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w.w, s.String())
			return err
		}
		_, err := fmt.Fprintf(w.w, "%+v\n", v)
		return err
	}
}

// statusLine is one entry of a status stream.
type statusLine struct {
	Status string `json:"status" yaml:"status"`
}

// Status writes one line of a status stream: plain text, one JSON object per
// line, or one YAML document per status.
func (w *Writer) Status(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.format {
	case FormatJSON:
		return json.NewEncoder(w.w).Encode(statusLine{Status: text})
	case FormatYAML:
		data, err := yaml.Marshal(statusLine{Status: text})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w.w, "---\n%s", data)
		return err
	default:
		_, err := fmt.Fprintln(w.w, text)
		return err
	}
}
