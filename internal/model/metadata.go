package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata describes a model artifact: tensor names and shapes, output
// semantics and the preprocessing it was trained with.
type Metadata struct {
	InputName   string     `json:"input_name,omitempty"`
	OutputName  string     `json:"output_name,omitempty"`
	InputShape  []int64    `json:"input_shape,omitempty"`
	OutputShape []int64    `json:"output_shape,omitempty"`
	Output      OutputKind `json:"output,omitempty"`

	// Image models
	Classes       []string      `json:"classes,omitempty"`
	ImageSize     int           `json:"image_size,omitempty"`
	Layout        Layout        `json:"layout,omitempty"`
	Normalization Normalization `json:"normalization,omitempty"`

	// Tabular models
	NumericCols []string `json:"numeric_cols,omitempty"`
	EncodedCols []string `json:"encoded_cols,omitempty"`
	Scaler      *Scaler  `json:"scaler,omitempty"`
}

// Scaler standardizes numeric columns as (x - mean) / scale
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Merge returns m with every field set in override replacing its counterpart
func (m Metadata) Merge(override Metadata) Metadata {
	if override.InputName != "" {
		m.InputName = override.InputName
	}
	if override.OutputName != "" {
		m.OutputName = override.OutputName
	}
	if len(override.InputShape) > 0 {
		m.InputShape = override.InputShape
	}
	if len(override.OutputShape) > 0 {
		m.OutputShape = override.OutputShape
	}
	if override.Output != "" {
		m.Output = override.Output
	}
	if len(override.Classes) > 0 {
		m.Classes = override.Classes
	}
	if override.ImageSize > 0 {
		m.ImageSize = override.ImageSize
	}
	if override.Layout != "" {
		m.Layout = override.Layout
	}
	if override.Normalization != "" {
		m.Normalization = override.Normalization
	}
	if len(override.NumericCols) > 0 {
		m.NumericCols = override.NumericCols
	}
	if len(override.EncodedCols) > 0 {
		m.EncodedCols = override.EncodedCols
	}
	if override.Scaler != nil {
		m.Scaler = override.Scaler
	}
	return m
}

// Validate checks that the metadata is internally consistent
func (m Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("input and output tensor names are required")
	}
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 {
		return fmt.Errorf("input and output shapes are required")
	}
	switch m.Output {
	case OutputLogits, OutputProbabilities:
	default:
		return fmt.Errorf("unsupported output kind %q", m.Output)
	}

	if m.IsTabular() {
		want := int64(len(m.NumericCols) + len(m.EncodedCols))
		if got := m.InputShape[len(m.InputShape)-1]; got != want {
			return fmt.Errorf("input width %d does not match %d feature columns", got, want)
		}
		if m.Scaler != nil && (len(m.Scaler.Mean) != len(m.NumericCols) || len(m.Scaler.Scale) != len(m.NumericCols)) {
			return fmt.Errorf("scaler has %d/%d entries for %d numeric columns",
				len(m.Scaler.Mean), len(m.Scaler.Scale), len(m.NumericCols))
		}
		return nil
	}

	if len(m.Classes) == 0 {
		return fmt.Errorf("image models need at least one class")
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("image_size must be > 0 (got %d)", m.ImageSize)
	}
	switch m.Layout {
	case LayoutNCHW, LayoutNHWC:
	default:
		return fmt.Errorf("unsupported layout %q", m.Layout)
	}
	switch m.Normalization {
	case NormalizationImageNet, NormalizationUnit:
	default:
		return fmt.Errorf("unsupported normalization %q", m.Normalization)
	}
	return nil
}

// IsTabular reports whether the model takes a feature row rather than an image
func (m Metadata) IsTabular() bool {
	return len(m.NumericCols)+len(m.EncodedCols) > 0
}

// ReadMetadata loads a metadata sidecar and merges it over defaults.
// An empty path returns the defaults unchanged.
func ReadMetadata(path string, defaults Metadata) (Metadata, error) {
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read metadata: %w", err)
	}

	var override Metadata
	if err := json.Unmarshal(raw, &override); err != nil {
		return defaults, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return defaults.Merge(override), nil
}
