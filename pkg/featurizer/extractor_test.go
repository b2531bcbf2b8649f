package featurizer

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/healthflow/platform/pkg/terminology"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func newTestExtractor() *Extractor {
	x := NewExtractor(terminology.DefaultCatalog(), NewHashingEmbedder())
	x.now = fixedNow
	return x
}

func bundleOf(resources ...map[string]interface{}) map[string]interface{} {
	entries := make([]interface{}, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, map[string]interface{}{"resource": r})
	}
	return map[string]interface{}{"resourceType": "Bundle", "entry": entries}
}

func observation(display string, value float64) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Observation",
		"code": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{"display": display},
			},
		},
		"valueQuantity": map[string]interface{}{"value": value},
	}
}

func TestExtractDemographics(t *testing.T) {
	x := newTestExtractor()
	features := x.Extract(bundleOf(map[string]interface{}{
		"resourceType": "Patient",
		"birthDate":    "1950-06-01",
		"gender":       "female",
		"maritalStatus": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{"code": "M"},
			},
		},
	}))

	if features["age"] != 74 {
		t.Fatalf("expected age 74, got %v", features["age"])
	}
	if features["age_group_elderly"] != 1 {
		t.Fatalf("expected elderly age group one-hot, got %v", features)
	}
	if features["gender_female"] != 1 {
		t.Fatalf("expected gender_female=1, got %v", features["gender_female"])
	}
	if features["marital_status_m"] != 1 {
		t.Fatalf("expected marital_status_m=1, got %v", features["marital_status_m"])
	}
}

func TestAgeGroupBoundaries(t *testing.T) {
	cases := []struct {
		age      int
		expected string
	}{
		{17, "pediatric"},
		{18, "young_adult"},
		{34, "young_adult"},
		{35, "middle_aged"},
		{49, "middle_aged"},
		{50, "older_adult"},
		{64, "older_adult"},
		{65, "elderly"},
	}
	for _, tc := range cases {
		if got := ageGroup(tc.age); got != tc.expected {
			t.Fatalf("age %d: expected %s, got %s", tc.age, tc.expected, got)
		}
	}
}

func TestExtractVitalStatistics(t *testing.T) {
	x := newTestExtractor()
	features := x.Extract(bundleOf(
		observation("Heart rate", 60),
		observation("Heart rate", 70),
		observation("Heart rate", 80),
	))

	if features["heart_rate_count"] != 3 {
		t.Fatalf("expected count 3, got %v", features["heart_rate_count"])
	}
	if features["heart_rate_mean"] != 70 {
		t.Fatalf("expected mean 70, got %v", features["heart_rate_mean"])
	}
	if features["heart_rate_min"] != 60 || features["heart_rate_max"] != 80 {
		t.Fatalf("unexpected min/max: %v / %v", features["heart_rate_min"], features["heart_rate_max"])
	}
	if features["heart_rate_latest"] != 80 {
		t.Fatalf("expected latest 80, got %v", features["heart_rate_latest"])
	}
	if math.Abs(features["heart_rate_trend"]-10) > 1e-9 {
		t.Fatalf("expected trend 10, got %v", features["heart_rate_trend"])
	}
	expectedStd := math.Sqrt(200.0 / 3.0)
	if math.Abs(features["heart_rate_std"]-expectedStd) > 1e-9 {
		t.Fatalf("expected std %v, got %v", expectedStd, features["heart_rate_std"])
	}
}

func TestSingleObservationHasNoTrend(t *testing.T) {
	x := newTestExtractor()
	features := x.Extract(bundleOf(observation("Glucose", 95)))
	if _, present := features["glucose_trend"]; present {
		t.Fatal("trend requires at least two observations")
	}
	if features["glucose_count"] != 1 {
		t.Fatalf("expected count 1, got %v", features["glucose_count"])
	}
}

func TestExtractConditionFeatures(t *testing.T) {
	x := newTestExtractor()
	condition := func(display, status string, chronic bool) map[string]interface{} {
		c := map[string]interface{}{
			"resourceType": "Condition",
			"code": map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{"display": display},
				},
			},
			"clinicalStatus": map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{"code": status},
				},
			},
		}
		if chronic {
			c["category"] = []interface{}{
				map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{"display": "Chronic condition"},
					},
				},
			}
		}
		return c
	}

	features := x.Extract(bundleOf(
		condition("Essential hypertension", "active", true),
		condition("Type 2 diabetes", "active", true),
		condition("Pneumonia", "resolved", false),
	))

	if features["total_conditions"] != 3 {
		t.Fatalf("expected 3 conditions, got %v", features["total_conditions"])
	}
	if features["active_conditions"] != 2 {
		t.Fatalf("expected 2 active, got %v", features["active_conditions"])
	}
	if features["chronic_conditions"] != 2 {
		t.Fatalf("expected 2 chronic, got %v", features["chronic_conditions"])
	}
	if features["condition_cardiovascular"] != 1 {
		t.Fatalf("expected 1 cardiovascular condition, got %v", features["condition_cardiovascular"])
	}
	if features["condition_diabetes"] != 1 {
		t.Fatalf("expected 1 diabetes condition, got %v", features["condition_diabetes"])
	}
	if features["condition_respiratory"] != 1 {
		t.Fatalf("expected 1 respiratory condition, got %v", features["condition_respiratory"])
	}
}

func TestExtractMedicationFeatures(t *testing.T) {
	x := newTestExtractor()
	medication := func(display, status string) map[string]interface{} {
		return map[string]interface{}{
			"resourceType": "MedicationRequest",
			"status":       status,
			"medicationCodeableConcept": map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{"display": display},
				},
			},
		}
	}

	features := x.Extract(bundleOf(
		medication("Metformin 500mg", "active"),
		medication("Lisinopril 10mg", "stopped"),
	))

	if features["total_medications"] != 2 {
		t.Fatalf("expected 2 medications, got %v", features["total_medications"])
	}
	if features["active_medications"] != 1 {
		t.Fatalf("expected 1 active medication, got %v", features["active_medications"])
	}
	if features["medication_diabetes"] != 1 || features["medication_cardiovascular"] != 1 {
		t.Fatalf("unexpected medication categories: %v", features)
	}
}

func TestExtractTextFeatures(t *testing.T) {
	x := newTestExtractor()
	report := map[string]interface{}{
		"resourceType": "DiagnosticReport",
		"conclusion":   "Patient shows signs of diabetes. Insulin therapy recommended.",
	}

	features := x.Extract(bundleOf(report))
	if features["concept_diabetes"] != 2 {
		t.Fatalf("expected 2 diabetes concept hits, got %v", features["concept_diabetes"])
	}
	if features["word_count"] != 8 {
		t.Fatalf("expected 8 words, got %v", features["word_count"])
	}
	if _, present := features["text_emb_0"]; !present {
		t.Fatal("expected embedding features")
	}
}

func TestTextFeatureNamesIdenticalAcrossModes(t *testing.T) {
	report := map[string]interface{}{
		"resourceType": "DiagnosticReport",
		"conclusion":   "Follow-up after myocardial infarction.",
	}

	advanced := NewExtractor(terminology.DefaultCatalog(), NewHashingEmbedder())
	fallback := NewExtractor(terminology.DefaultCatalog(), NoopEmbedder{})

	names := func(features map[string]float64) []string {
		out := make([]string, 0, len(features))
		for name := range features {
			out = append(out, name)
		}
		sort.Strings(out)
		return out
	}

	advancedNames := names(advanced.Extract(bundleOf(report)))
	fallbackNames := names(fallback.Extract(bundleOf(report)))

	if len(advancedNames) != len(fallbackNames) {
		t.Fatalf("feature name sets differ: %d vs %d", len(advancedNames), len(fallbackNames))
	}
	for i := range advancedNames {
		if advancedNames[i] != fallbackNames[i] {
			t.Fatalf("feature name mismatch at %d: %s vs %s", i, advancedNames[i], fallbackNames[i])
		}
	}
}

func TestBundleLevelCounts(t *testing.T) {
	x := newTestExtractor()
	features := x.Extract(bundleOf(
		map[string]interface{}{"resourceType": "Patient", "gender": "male"},
		observation("Heart rate", 72),
		map[string]interface{}{"resourceType": "Appointment"},
	))

	if features["total_resources"] != 3 {
		t.Fatalf("expected 3 resources, got %v", features["total_resources"])
	}
	if features["resource_diversity"] != 3 {
		t.Fatalf("expected diversity 3, got %v", features["resource_diversity"])
	}
}

func TestExtractEmptyBundle(t *testing.T) {
	x := newTestExtractor()
	features := x.Extract(map[string]interface{}{"resourceType": "Bundle"})
	if features["total_resources"] != 0 {
		t.Fatalf("expected 0 resources, got %v", features["total_resources"])
	}
}
