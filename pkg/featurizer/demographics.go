package featurizer

import "time"

// Ordinal age buckets, fixed boundaries.
func ageGroup(age int) string {
	switch {
	case age < 18:
		return "pediatric"
	case age < 35:
		return "young_adult"
	case age < 50:
		return "middle_aged"
	case age < 65:
		return "older_adult"
	default:
		return "elderly"
	}
}

func (x *Extractor) extractDemographics(patient map[string]interface{}) map[string]interface{} {
	features := make(map[string]interface{})

	if birthDate := getString(patient["birthDate"]); birthDate != "" {
		if parsed, err := time.Parse("2006-01-02", birthDate); err == nil {
			age := int(x.now().Sub(parsed).Hours() / 24 / 365)
			features["age"] = age
			features["age_group"] = ageGroup(age)
		}
	}
	if _, ok := features["age"]; !ok {
		features["age"] = nil
		features["age_group"] = "unknown"
	}

	if gender := getString(patient["gender"]); gender != "" {
		features["gender"] = gender
	} else {
		features["gender"] = "unknown"
	}

	if marital := asMap(patient["maritalStatus"]); marital != nil {
		if codings := asSlice(marital["coding"]); len(codings) > 0 {
			if coding := asMap(codings[0]); coding != nil {
				if code := getString(coding["code"]); code != "" {
					features["marital_status"] = code
				}
			}
		}
	}

	return features
}
