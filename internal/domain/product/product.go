package product

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxTextSize is the maximum size in bytes of a single free-text field.
const MaxTextSize = 16384 // 16KB

// Attributes holds the catalog metadata of a product, without embeddings.
type Attributes struct {
	Category      string
	Gender        string
	Description   string
	Summary       string
	Neckline      string
	Sleeve        string
	Length        string
	Style         string
	Fabric        string
	Occasion      string
	Season        string
	SpecialDesign string
	Price         int
	Color         string
	ImagePaths    []string
}

// Record is the product aggregate (immutable value object).
// The text vector is present from ingestion; the image vector is filled by a
// separate enrichment step and may stay absent indefinitely.
type Record struct {
	id          string
	attrs       Attributes
	textVector  []float32
	imageVector []float32
}

// New validates and creates a Record.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. ImagePaths must be non-empty; the first
// entry is the primary image.
func New(id string, attrs Attributes) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("product ID is required")
	}
	if len(id) > 256 {
		return Record{}, fmt.Errorf("product ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Record{}, fmt.Errorf("product ID must be alphanumeric with underscores and hyphens")
	}
	if len(attrs.ImagePaths) == 0 {
		return Record{}, fmt.Errorf("at least one image path is required")
	}
	for i, p := range attrs.ImagePaths {
		if p == "" {
			return Record{}, fmt.Errorf("image path [%d] is empty", i)
		}
	}
	if attrs.Price < 0 {
		return Record{}, fmt.Errorf("price must be non-negative, got %d", attrs.Price)
	}
	for _, f := range []struct{ name, value string }{
		{"description", attrs.Description},
		{"summary", attrs.Summary},
		{"special_design", attrs.SpecialDesign},
	} {
		if len(f.value) > MaxTextSize {
			return Record{}, fmt.Errorf("%s too large (max %d bytes)", f.name, MaxTextSize)
		}
	}

	attrs.ImagePaths = append([]string(nil), attrs.ImagePaths...)
	return Record{id: id, attrs: attrs}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id string, attrs Attributes, textVector, imageVector []float32) Record {
	return Record{id: id, attrs: attrs, textVector: textVector, imageVector: imageVector}
}

// ID returns the product identifier.
func (r *Record) ID() string { return r.id }

// Attributes returns the catalog metadata.
func (r *Record) Attributes() Attributes { return r.attrs }

// PrimaryImage returns the first image path.
func (r *Record) PrimaryImage() string {
	if len(r.attrs.ImagePaths) == 0 {
		return ""
	}
	return r.attrs.ImagePaths[0]
}

// TextVector returns the text-space embedding.
func (r *Record) TextVector() []float32 { return r.textVector }

// ImageVector returns the image-space embedding, nil when not yet enriched.
func (r *Record) ImageVector() []float32 { return r.imageVector }

// HasImageVector reports whether the image-space embedding is present.
func (r *Record) HasImageVector() bool { return len(r.imageVector) > 0 }

// WithTextVector returns a copy with the text vector set.
func (r *Record) WithTextVector(v []float32) Record {
	return Record{id: r.id, attrs: r.attrs, textVector: v, imageVector: r.imageVector}
}

// WithImageVector returns a copy with the image vector set.
func (r *Record) WithImageVector(v []float32) Record {
	return Record{id: r.id, attrs: r.attrs, textVector: r.textVector, imageVector: v}
}

// SearchableText combines key attributes into the string that is embedded
// into the text space at ingestion.
func (r *Record) SearchableText() string {
	a := r.attrs
	return fmt.Sprintf(
		"A %s %s %s for %s. Style: %s with a %s neckline. Details: %s",
		a.Color, a.Gender, a.Category, a.Occasion, a.Style, a.Neckline, a.Summary,
	)
}
