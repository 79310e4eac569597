package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetlens/fleetlens/internal/config"
	"github.com/fleetlens/fleetlens/internal/extract"
)

const (
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
	outputFormatText = "text"
)

// scanOutput is the CLI result of a single-image scan.
type scanOutput struct {
	Mode       string            `json:"mode" yaml:"mode"`
	Source     string            `json:"source,omitempty" yaml:"source,omitempty"`
	Confidence float64           `json:"confidence" yaml:"confidence"`
	Vehicle    *extract.Vehicle  `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Document   *extract.Document `json:"document,omitempty" yaml:"document,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// batchOutput is the CLI result of a reconciled multi-image scan.
type batchOutput struct {
	Mode       string            `json:"mode" yaml:"mode"`
	Count      int               `json:"count" yaml:"count"`
	Confidence float64           `json:"confidence" yaml:"confidence"`
	FullText   string            `json:"full_text" yaml:"full_text"`
	Vehicle    *extract.Vehicle  `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Document   *extract.Document `json:"document,omitempty" yaml:"document,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// writeResult renders v according to the output configuration and writes it
// to stdout or the configured file.
func writeResult(cfg config.OutputConfig, v any) error {
	rendered, err := renderResult(cfg.Format, v)
	if err != nil {
		return err
	}

	if cfg.File != "" {
		if err := os.WriteFile(cfg.File, []byte(rendered), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	fmt.Print(rendered)
	return nil
}

func renderResult(format string, v any) (string, error) {
	switch format {
	case outputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return string(data), nil
	case outputFormatText:
		return renderText(v)
	case outputFormatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// renderText prints "key: value" lines via a JSON round-trip, one nesting
// level deep, with keys sorted for stable output.
func renderText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("failed to flatten result: %w", err)
	}

	var b strings.Builder
	writeTextFields(&b, "", fields)
	return b.String(), nil
}

func writeTextFields(b *strings.Builder, prefix string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch val := fields[k].(type) {
		case map[string]any:
			fmt.Fprintf(b, "%s%s:\n", prefix, k)
			writeTextFields(b, prefix+"  ", val)
		default:
			fmt.Fprintf(b, "%s%s: %v\n", prefix, k, val)
		}
	}
}

// roundConfidence trims confidence to the configured precision for display.
func roundConfidence(c float64, precision int) float64 {
	if precision <= 0 {
		return c
	}
	scale := math.Pow10(precision)
	return math.Round(c*scale) / scale
}
