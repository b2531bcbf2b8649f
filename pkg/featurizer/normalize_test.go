package featurizer

import (
	"math"
	"testing"
)

func TestNormalizeCoercesEverythingNumeric(t *testing.T) {
	raw := map[string]interface{}{
		"missing":  nil,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"neg_inf":  math.Inf(-1),
		"truthy":   true,
		"falsy":    false,
		"count":    5,
		"measured": 98.6,
	}

	out := Normalize(raw)

	for _, key := range []string{"missing", "nan", "inf", "neg_inf", "falsy"} {
		if out[key] != 0 {
			t.Fatalf("%s: expected 0, got %v", key, out[key])
		}
	}
	if out["truthy"] != 1 {
		t.Fatalf("expected truthy=1, got %v", out["truthy"])
	}
	if out["count"] != 5 {
		t.Fatalf("expected count=5, got %v", out["count"])
	}
	if out["measured"] != 98.6 {
		t.Fatalf("expected measured=98.6, got %v", out["measured"])
	}
}

func TestNormalizeOneHotsStrings(t *testing.T) {
	out := Normalize(map[string]interface{}{
		"gender":         "male",
		"marital_status": "Never Married",
	})

	if out["gender_male"] != 1 {
		t.Fatalf("expected gender_male=1, got %v", out)
	}
	if _, present := out["gender"]; present {
		t.Fatal("raw string key must not survive normalization")
	}
	if out["marital_status_never_married"] != 1 {
		t.Fatalf("expected slugged one-hot, got %v", out)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	out := Normalize(map[string]interface{}{})
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}
