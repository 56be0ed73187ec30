package product

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/stylevec/internal/domain"
	domprod "github.com/kailas-cloud/stylevec/internal/domain/product"
)

// recordToFields flattens a product record into hash fields. The image
// vector is written only when present; an upsert without it leaves any
// previously stored image vector untouched.
func recordToFields(rec *domprod.Record) map[string]string {
	a := rec.Attributes()

	paths, _ := json.Marshal(a.ImagePaths)

	fields := map[string]string{
		domain.FieldID:            rec.ID(),
		domain.FieldCategory:      a.Category,
		domain.FieldGender:        a.Gender,
		domain.FieldDescription:   a.Description,
		domain.FieldSummary:       a.Summary,
		domain.FieldNeckline:      a.Neckline,
		domain.FieldSleeve:        a.Sleeve,
		domain.FieldLength:        a.Length,
		domain.FieldStyle:         a.Style,
		domain.FieldFabric:        a.Fabric,
		domain.FieldOccasion:      a.Occasion,
		domain.FieldSeason:        a.Season,
		domain.FieldSpecialDesign: a.SpecialDesign,
		domain.FieldPrice:         strconv.Itoa(a.Price),
		domain.FieldColor:         a.Color,
		domain.FieldImagePaths:    string(paths),
		domain.FieldTextVector:    vectorToBytes(rec.TextVector()),
	}
	if rec.HasImageVector() {
		fields[domain.FieldImageVector] = vectorToBytes(rec.ImageVector())
	}
	return fields
}

// fieldsToRecord hydrates a product record from hash fields.
func fieldsToRecord(id string, fields map[string]string) (domprod.Record, error) {
	var paths []string
	if raw := fields[domain.FieldImagePaths]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &paths); err != nil {
			return domprod.Record{}, fmt.Errorf("parse img_paths for %s: %w", id, err)
		}
	}

	price := 0
	if raw := fields[domain.FieldPrice]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return domprod.Record{}, fmt.Errorf("parse price for %s: %w", id, err)
		}
		price = parsed
	}

	attrs := domprod.Attributes{
		Category:      fields[domain.FieldCategory],
		Gender:        fields[domain.FieldGender],
		Description:   fields[domain.FieldDescription],
		Summary:       fields[domain.FieldSummary],
		Neckline:      fields[domain.FieldNeckline],
		Sleeve:        fields[domain.FieldSleeve],
		Length:        fields[domain.FieldLength],
		Style:         fields[domain.FieldStyle],
		Fabric:        fields[domain.FieldFabric],
		Occasion:      fields[domain.FieldOccasion],
		Season:        fields[domain.FieldSeason],
		SpecialDesign: fields[domain.FieldSpecialDesign],
		Price:         price,
		Color:         fields[domain.FieldColor],
		ImagePaths:    paths,
	}

	var textVec, imageVec []float32
	if raw, ok := fields[domain.FieldTextVector]; ok {
		textVec = bytesToVector(raw)
	}
	if raw, ok := fields[domain.FieldImageVector]; ok {
		imageVec = bytesToVector(raw)
	}

	return domprod.Reconstruct(id, attrs, textVec, imageVec), nil
}

func vectorToBytes(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
