// pkg/models/image.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// ImageSourceDescriptor describes the uploaded original
type ImageSourceDescriptor struct {
	Path   string `json:"path"`
	Bytes  []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// VariantResult is one derivative written to disk
type VariantResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}

// OptimizationManifest bundles everything produced by one optimize call
type OptimizationManifest struct {
	BaseName         string                `json:"baseName"`
	Main             VariantResult         `json:"main"`
	Medium           *VariantResult        `json:"medium,omitempty"`
	Thumbnail        *VariantResult        `json:"thumbnail,omitempty"`
	Preview          *VariantResult        `json:"preview,omitempty"`
	Placeholder      string                `json:"placeholder,omitempty"`
	Original         ImageSourceDescriptor `json:"original"`
	CompressionRatio float64               `json:"compressionRatio"`
	VariantsProduced []string              `json:"variantsProduced"`
	CreatedAt        time.Time             `json:"createdAt"`
}

// OptimizeOptions controls the optional tiers of an optimize call
type OptimizeOptions struct {
	GenerateThumbnail bool `json:"generateThumbnail"`
	GeneratePreview   bool `json:"generatePreview"`
	// Atomic stages every file and only publishes them once all tiers succeed
	Atomic bool `json:"atomic"`
}

// DefaultOptimizeOptions generates every optional tier
func DefaultOptimizeOptions() OptimizeOptions {
	return OptimizeOptions{GenerateThumbnail: true, GeneratePreview: true}
}

// ImageInfo is the lightweight metadata returned by image introspection
type ImageInfo struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	Size        int64  `json:"size"`
	HasAlpha    bool   `json:"hasAlpha"`
	Orientation int    `json:"orientation"`
}

// Variant returns the produced variant for a tier name, nil when absent
func (m *OptimizationManifest) Variant(name string) *VariantResult {
	switch name {
	case TierMain:
		return &m.Main
	case TierMedium:
		return m.Medium
	case TierThumbnail:
		return m.Thumbnail
	case TierPreview:
		return m.Preview
	}
	return nil
}

// Variants lists every produced file variant, smallest tier first
func (m *OptimizationManifest) Variants() []VariantResult {
	var out []VariantResult
	for _, name := range tiersBySize {
		if v := m.Variant(name); v != nil && v.Path != "" {
			out = append(out, *v)
		}
	}
	return out
}

// SrcSet renders the manifest as an HTML srcset, smallest tier first
func (m *OptimizationManifest) SrcSet() string {
	var parts []string
	for _, v := range m.Variants() {
		parts = append(parts, fmt.Sprintf("%s %dw", v.URL, v.Width))
	}
	return strings.Join(parts, ", ")
}

// BestVariant picks the smallest produced tier whose target width covers maxWidth.
// Tiers that were not generated are skipped in favour of the next larger one.
func (m *OptimizationManifest) BestVariant(maxWidth int) VariantResult {
	for _, name := range tiersBySize {
		if name == TierMain {
			break
		}
		spec, _ := TierSpec(name)
		if spec.Width < maxWidth {
			continue
		}
		if v := m.Variant(name); v != nil {
			return *v
		}
	}
	return m.Main
}

// TotalVariantBytes sums the size of every produced file variant
func (m *OptimizationManifest) TotalVariantBytes() int64 {
	var total int64
	for _, v := range m.Variants() {
		total += v.Size
	}
	return total
}
