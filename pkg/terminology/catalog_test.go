package terminology

import "testing"

func TestCategorizeCondition(t *testing.T) {
	cat := DefaultCatalog()

	cases := []struct {
		display  string
		expected string
	}{
		{"Essential hypertension", "cardiovascular"},
		{"Type 2 diabetes mellitus", "diabetes"},
		{"Chronic obstructive pulmonary disease", "respiratory"},
		{"Acute kidney injury", "renal"},
		{"Major depression", "mental_health"},
		{"Lung carcinoma", "cancer"},
		{"Sprained ankle", "other"},
	}

	for _, tc := range cases {
		if got := cat.CategorizeCondition(tc.display); got != tc.expected {
			t.Fatalf("%q: expected %s, got %s", tc.display, tc.expected, got)
		}
	}
}

func TestCategorizeMedication(t *testing.T) {
	cat := DefaultCatalog()
	if got := cat.CategorizeMedication("Metformin 500mg"); got != "diabetes" {
		t.Fatalf("expected diabetes, got %s", got)
	}
	if got := cat.CategorizeMedication("Lisinopril 10mg"); got != "cardiovascular" {
		t.Fatalf("expected cardiovascular, got %s", got)
	}
	if got := cat.CategorizeMedication("Acetaminophen"); got != "other" {
		t.Fatalf("expected other, got %s", got)
	}
}

func TestVitalNameResolution(t *testing.T) {
	cat := DefaultCatalog()

	name, ok := cat.VitalName("Systolic Blood Pressure")
	if !ok || name != "blood_pressure" {
		t.Fatalf("expected blood_pressure, got %q (%v)", name, ok)
	}

	name, ok = cat.VitalName("Heart rate")
	if !ok || name != "heart_rate" {
		t.Fatalf("expected heart_rate, got %q (%v)", name, ok)
	}

	if _, ok := cat.VitalName("Pain score"); ok {
		t.Fatal("unexpected vital match for unrelated label")
	}
}

func TestCategoryHits(t *testing.T) {
	cat := DefaultCatalog()
	hits := cat.CategoryHits("History of diabetes. Insulin started. No cancer found.")
	if hits["diabetes"] != 2 {
		t.Fatalf("expected 2 diabetes hits, got %d", hits["diabetes"])
	}
	if hits["cancer"] != 1 {
		t.Fatalf("expected 1 cancer hit, got %d", hits["cancer"])
	}
	if hits["renal"] != 0 {
		t.Fatalf("expected 0 renal hits, got %d", hits["renal"])
	}
}
