package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds the keyword tables that drive clinical categorization:
// condition/medication category keywords and canonical vital-sign names.
// It is loadable from YAML so deployments can extend the built-in tables.
type Catalog struct {
	Categories  map[string][]string `yaml:"categories" json:"categories"`
	Medications map[string][]string `yaml:"medications" json:"medications"`
	Vitals      map[string]string   `yaml:"vitals" json:"vitals"`

	vitalKeywords []string
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Categories) == 0 {
		return Catalog{}, fmt.Errorf("concept catalog has no categories")
	}
	cat.index()
	return cat, nil
}

// CategoryNames returns the condition category names in stable order.
func (c Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategorizeCondition maps a condition display label to a clinical category
// by keyword match, or "other" when nothing matches.
func (c Catalog) CategorizeCondition(display string) string {
	lower := strings.ToLower(display)
	for _, category := range c.CategoryNames() {
		for _, keyword := range c.Categories[category] {
			if strings.Contains(lower, keyword) {
				return category
			}
		}
	}
	return "other"
}

// CategorizeMedication maps a medication display label to a category via the
// drug-name keyword table.
func (c Catalog) CategorizeMedication(display string) string {
	lower := strings.ToLower(display)
	names := make([]string, 0, len(c.Medications))
	for name := range c.Medications {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, category := range names {
		for _, keyword := range c.Medications[category] {
			if strings.Contains(lower, keyword) {
				return category
			}
		}
	}
	return "other"
}

// VitalName resolves an observation display label to a canonical vital-sign
// name by keyword match.
func (c Catalog) VitalName(display string) (string, bool) {
	lower := strings.ToLower(display)
	for _, keyword := range c.vitalKeywords {
		if strings.Contains(lower, keyword) {
			return c.Vitals[keyword], true
		}
	}
	return "", false
}

// CategoryHits counts keyword occurrences per category across a block of
// free text.
func (c Catalog) CategoryHits(text string) map[string]int {
	lower := strings.ToLower(text)
	hits := make(map[string]int, len(c.Categories))
	for category, keywords := range c.Categories {
		count := 0
		for _, keyword := range keywords {
			count += strings.Count(lower, keyword)
		}
		hits[category] = count
	}
	return hits
}

func (c *Catalog) index() {
	c.vitalKeywords = make([]string, 0, len(c.Vitals))
	for keyword := range c.Vitals {
		c.vitalKeywords = append(c.vitalKeywords, keyword)
	}
	// Longest keyword first so "blood pressure" wins over "blood".
	sort.Slice(c.vitalKeywords, func(i, j int) bool {
		if len(c.vitalKeywords[i]) != len(c.vitalKeywords[j]) {
			return len(c.vitalKeywords[i]) > len(c.vitalKeywords[j])
		}
		return c.vitalKeywords[i] < c.vitalKeywords[j]
	})
}

func DefaultCatalog() Catalog {
	cat := Catalog{
		Categories: map[string][]string{
			"cardiovascular": {
				"hypertension", "heart disease", "myocardial infarction", "cardiac arrest",
				"coronary artery disease", "atrial fibrillation", "heart failure", "stroke",
			},
			"diabetes": {
				"diabetes", "diabetic", "hyperglycemia", "hypoglycemia", "insulin",
				"glucose", "hemoglobin a1c", "diabetic neuropathy",
			},
			"respiratory": {
				"asthma", "copd", "pneumonia", "respiratory failure", "dyspnea",
				"chronic obstructive pulmonary disease", "bronchitis", "lung disease",
			},
			"renal": {
				"kidney disease", "renal failure", "dialysis", "nephropathy",
				"chronic kidney disease", "acute kidney injury", "creatinine",
			},
			"mental_health": {
				"depression", "anxiety", "bipolar", "schizophrenia", "ptsd",
				"mental health", "psychiatric", "mood disorder",
			},
			"cancer": {
				"cancer", "tumor", "malignancy", "oncology", "chemotherapy",
				"radiation therapy", "metastasis", "carcinoma",
			},
		},
		Medications: map[string][]string{
			"diabetes":       {"insulin", "metformin", "glipizide"},
			"cardiovascular": {"lisinopril", "amlodipine", "metoprolol"},
			"respiratory":    {"albuterol", "prednisone", "montelukast"},
			"mental_health":  {"sertraline", "fluoxetine", "lorazepam"},
		},
		Vitals: map[string]string{
			"blood pressure":    "blood_pressure",
			"heart rate":        "heart_rate",
			"temperature":       "temperature",
			"respiratory rate":  "respiratory_rate",
			"oxygen saturation": "oxygen_saturation",
			"weight":            "weight",
			"height":            "height",
			"bmi":               "bmi",
			"glucose":           "glucose",
			"cholesterol":       "cholesterol",
			"hemoglobin":        "hemoglobin",
			"creatinine":        "creatinine",
		},
	}
	cat.index()
	return cat
}
