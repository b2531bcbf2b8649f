package featurizer

import (
	"time"

	"github.com/healthflow/platform/pkg/terminology"
)

// Extractor derives a flat numeric feature mapping from an anonymized
// clinical bundle. The set of producible feature names is open-ended; the
// scoring engine reconciles it against the model's fixed schema.
type Extractor struct {
	catalog  terminology.Catalog
	embedder Embedder
	now      func() time.Time
}

func NewExtractor(catalog terminology.Catalog, embedder Embedder) *Extractor {
	if embedder == nil {
		embedder = NoopEmbedder{}
	}
	return &Extractor{
		catalog:  catalog,
		embedder: embedder,
		now:      time.Now,
	}
}

// Extract walks the bundle once, groups resources by type, derives raw
// features per group and normalizes everything to numbers.
func (x *Extractor) Extract(bundle map[string]interface{}) map[string]float64 {
	var (
		patients     []map[string]interface{}
		observations []map[string]interface{}
		conditions   []map[string]interface{}
		medications  []map[string]interface{}
		reports      []map[string]interface{}
	)

	typesSeen := make(map[string]struct{})
	entryCount := 0

	if entries, ok := bundle["entry"].([]interface{}); ok {
		entryCount = len(entries)
		for _, raw := range entries {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			resource, ok := entry["resource"].(map[string]interface{})
			if !ok {
				continue
			}
			resourceType, _ := resource["resourceType"].(string)
			if resourceType != "" {
				typesSeen[resourceType] = struct{}{}
			}
			switch resourceType {
			case "Patient":
				patients = append(patients, resource)
			case "Observation":
				observations = append(observations, resource)
			case "Condition":
				conditions = append(conditions, resource)
			case "MedicationRequest":
				medications = append(medications, resource)
			case "DiagnosticReport":
				reports = append(reports, resource)
			}
		}
	}

	raw := make(map[string]interface{})
	if len(patients) > 0 {
		merge(raw, x.extractDemographics(patients[0]))
	}
	merge(raw, x.extractVitals(observations))
	merge(raw, x.extractConditions(conditions))
	merge(raw, x.extractMedications(medications))
	merge(raw, x.extractText(reports))

	raw["total_resources"] = entryCount
	raw["resource_diversity"] = len(typesSeen)

	return Normalize(raw)
}

func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}

func getString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

func asSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

// firstCodingDisplay returns the display (or code) of the first coding entry
// of a CodeableConcept-shaped value.
func firstCodingDisplay(concept interface{}) string {
	conceptMap := asMap(concept)
	if conceptMap == nil {
		return ""
	}
	codings := asSlice(conceptMap["coding"])
	if len(codings) == 0 {
		return getString(conceptMap["text"])
	}
	coding := asMap(codings[0])
	if coding == nil {
		return ""
	}
	if display := getString(coding["display"]); display != "" {
		return display
	}
	return getString(coding["code"])
}
