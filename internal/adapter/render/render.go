package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khmm12/reachability-checker/internal/report"
)

type Format string

const (
	FormatNone Format = "none"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatNone:
		return FormatNone, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported dump format: %s", s)
	}
}

// Lines writes one "<host> <protocol> = <outcome>" line per entry.
func Lines(w io.Writer, r *report.Report) error {
	for _, e := range r.Entries() {
		if _, err := fmt.Fprintf(w, "%s %s = %s\n", e.Host, e.Protocol, e.Outcome); err != nil {
			return fmt.Errorf("failed to write report line: %w", err)
		}
	}

	return nil
}

// Document is the structured form of a report.
type Document struct {
	Results  map[string]map[string]report.Outcome `json:"results" yaml:"results"`
	Summary  report.Summary                       `json:"summary" yaml:"summary"`
	Duration string                               `json:"duration" yaml:"duration"`
}

func NewDocument(r *report.Report) Document {
	return Document{
		Results:  r.Tree(),
		Summary:  r.Summary(),
		Duration: r.Duration().String(),
	}
}

func Dump(w io.Writer, r *report.Report, format Format) error {
	doc := NewDocument(r)

	switch format {
	case FormatNone:
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode report as json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode report as yaml: %w", err)
		}

		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode report as yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported dump format: %s", format)
	}

	return nil
}
