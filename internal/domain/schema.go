package domain

// Hash field names of a stored product record. Tag and numeric fields are
// indexed for pre-filtering; the two vector fields are independent embedding
// spaces and are never compared to each other.
const (
	FieldID            = "id"
	FieldCategory      = "category"
	FieldGender        = "gender"
	FieldDescription   = "description"
	FieldSummary       = "summary"
	FieldNeckline      = "neckline"
	FieldSleeve        = "sleeve"
	FieldLength        = "length"
	FieldStyle         = "style"
	FieldFabric        = "fabric"
	FieldOccasion      = "occasion"
	FieldSeason        = "season"
	FieldSpecialDesign = "special_design"
	FieldPrice         = "price"
	FieldColor         = "color"
	FieldImagePaths    = "img_paths"
	FieldTextVector    = "text_vector"
	FieldImageVector   = "image_vector"
)

// ProductKeyPrefix returns the key namespace all product records live under.
func ProductKeyPrefix(prefix string) string {
	return prefix + "products:"
}

// ProductKey returns the record key for a product id.
func ProductKey(prefix, id string) string {
	return ProductKeyPrefix(prefix) + id
}

// ProductKeyPattern returns the SCAN pattern covering all product records.
func ProductKeyPattern(prefix string) string {
	return ProductKeyPrefix(prefix) + "*"
}

// ProductIndexName returns the FT index name for the catalog.
func ProductIndexName(prefix string) string {
	return prefix + "products:idx"
}
