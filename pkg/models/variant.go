// pkg/models/variant.go
package models

// FitMode decides how a source is mapped onto a tier's target box
type FitMode string

const (
	// FitInside keeps the aspect ratio inside the box and never enlarges
	FitInside FitMode = "inside"
	// FitCover crops around the center to fill the box exactly
	FitCover FitMode = "cover"
)

// Tier names
const (
	TierMain        = "main"
	TierMedium      = "medium"
	TierThumbnail   = "thumbnail"
	TierPreview     = "preview"
	TierPlaceholder = "placeholder"
)

// EncodedFormat is the single output codec of every file variant
const (
	EncodedFormat    = "jpeg"
	EncodedExtension = "jpg"
	EncodedMimeType  = "image/jpeg"
)

// PlaceholderBlurSigma is the gaussian sigma applied to the placeholder
const PlaceholderBlurSigma = 1.0

// VariantSpec is the static description of one tier
type VariantSpec struct {
	Name    string  `json:"name"`
	Suffix  string  `json:"suffix"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Quality int     `json:"quality"`
	Fit     FitMode `json:"fit"`
	Format  string  `json:"format"`
}

var tierSpecs = map[string]VariantSpec{
	TierMain:        {Name: TierMain, Suffix: "main", Width: 1200, Height: 900, Quality: 85, Fit: FitInside, Format: EncodedFormat},
	TierMedium:      {Name: TierMedium, Suffix: "medium", Width: 800, Height: 600, Quality: 80, Fit: FitInside, Format: EncodedFormat},
	TierThumbnail:   {Name: TierThumbnail, Suffix: "thumbnail", Width: 300, Height: 300, Quality: 75, Fit: FitCover, Format: EncodedFormat},
	TierPreview:     {Name: TierPreview, Suffix: "preview", Width: 150, Height: 150, Quality: 70, Fit: FitCover, Format: EncodedFormat},
	TierPlaceholder: {Name: TierPlaceholder, Suffix: "placeholder", Width: 20, Height: 20, Quality: 30, Fit: FitInside, Format: EncodedFormat},
}

// tiersBySize is the smallest-to-largest order used by srcset and variant selection
var tiersBySize = []string{TierPreview, TierThumbnail, TierMedium, TierMain}

// TierSpec returns the spec of a named tier
func TierSpec(name string) (VariantSpec, bool) {
	spec, ok := tierSpecs[name]
	return spec, ok
}

// FileName is the on-disk name of a tier for the given base name
func (s VariantSpec) FileName(baseName string) string {
	return baseName + "_" + s.Suffix + "." + EncodedExtension
}
