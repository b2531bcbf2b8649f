package featurizer

import "strings"

func (x *Extractor) extractConditions(conditions []map[string]interface{}) map[string]interface{} {
	features := make(map[string]interface{})
	categories := make(map[string]int)
	active := 0
	chronic := 0

	for _, condition := range conditions {
		if hasCodingWith(condition["clinicalStatus"], "code", "active") {
			active++
		}
		if display := firstCodingDisplay(condition["code"]); display != "" {
			categories[x.catalog.CategorizeCondition(display)]++
		}
		for _, rawCategory := range asSlice(condition["category"]) {
			if hasCodingWith(rawCategory, "display", "chronic") {
				chronic++
				break
			}
		}
	}

	features["total_conditions"] = len(conditions)
	features["active_conditions"] = active
	features["chronic_conditions"] = chronic
	for category, count := range categories {
		features["condition_"+category] = count
	}
	return features
}

func (x *Extractor) extractMedications(medications []map[string]interface{}) map[string]interface{} {
	features := make(map[string]interface{})
	categories := make(map[string]int)
	active := 0

	for _, medication := range medications {
		if getString(medication["status"]) == "active" {
			active++
		}
		if display := firstCodingDisplay(medication["medicationCodeableConcept"]); display != "" {
			categories[x.catalog.CategorizeMedication(display)]++
		}
	}

	features["total_medications"] = len(medications)
	features["active_medications"] = active
	for category, count := range categories {
		features["medication_"+category] = count
	}
	return features
}

// hasCodingWith reports whether any coding entry of a CodeableConcept-shaped
// value contains the needle in the given field, case-insensitively.
func hasCodingWith(concept interface{}, field, needle string) bool {
	conceptMap := asMap(concept)
	if conceptMap == nil {
		return false
	}
	for _, raw := range asSlice(conceptMap["coding"]) {
		coding := asMap(raw)
		if coding == nil {
			continue
		}
		if strings.Contains(strings.ToLower(getString(coding[field])), needle) {
			return true
		}
	}
	return false
}
