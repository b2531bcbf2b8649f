package anonymizer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/healthflow/platform/pkg/common/logger"
	"github.com/healthflow/platform/pkg/pseudonym"
)

func init() {
	logger.Init()
}

type staticResolver struct{}

func (staticResolver) Resolve(ctx context.Context, originalID, identifierType string) (string, error) {
	return pseudonym.Generate(originalID, identifierType, "test-salt"), nil
}

func testBundle() map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "collection",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Patient",
					"id":           "patient-1",
					"name": []interface{}{
						map[string]interface{}{
							"family": "Doe",
							"given":  []interface{}{"John"},
						},
					},
					"telecom": []interface{}{
						map[string]interface{}{"system": "phone", "value": "555-0100"},
						map[string]interface{}{"system": "email", "value": "john@example.com"},
					},
					"address": []interface{}{
						map[string]interface{}{"city": "Springfield"},
					},
				},
			},
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Observation",
					"subject": map[string]interface{}{
						"reference": "Patient/patient-1",
					},
					"performer": []interface{}{
						map[string]interface{}{"reference": "Practitioner/pract-9"},
					},
				},
			},
		},
	}
}

func TestAnonymizeKeepsReferencesConsistent(t *testing.T) {
	engine := NewEngine(staticResolver{})
	ctx := context.Background()

	result, err := engine.Anonymize(ctx, testBundle(), "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPseudo := pseudonym.Generate("patient-1", pseudonym.TypePatientID, "test-salt")
	if result.PatientPseudoID != expectedPseudo {
		t.Fatalf("expected top-level pseudonym %q, got %q", expectedPseudo, result.PatientPseudoID)
	}

	entries := result.Bundle["entry"].([]interface{})
	patient := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if patient["id"] != expectedPseudo {
		t.Fatalf("patient id not pseudonymized: %v", patient["id"])
	}

	observation := entries[1].(map[string]interface{})["resource"].(map[string]interface{})
	subject := observation["subject"].(map[string]interface{})
	if subject["reference"] != "Patient/"+expectedPseudo {
		t.Fatalf("subject reference inconsistent with patient pseudonym: %v", subject["reference"])
	}

	performer := observation["performer"].([]interface{})[0].(map[string]interface{})
	expectedPract := pseudonym.Generate("pract-9", pseudonym.TypePractitionerID, "test-salt")
	if performer["reference"] != "Practitioner/"+expectedPract {
		t.Fatalf("performer reference not rewritten: %v", performer["reference"])
	}
}

func TestAnonymizeDropsAddresses(t *testing.T) {
	engine := NewEngine(staticResolver{})
	result, err := engine.Anonymize(context.Background(), testBundle(), "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := result.Bundle["entry"].([]interface{})
	patient := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if _, present := patient["address"]; present {
		t.Fatal("address must be removed, not pseudonymized")
	}
}

func TestAnonymizeReplacesContactPoints(t *testing.T) {
	engine := NewEngine(staticResolver{})
	result, err := engine.Anonymize(context.Background(), testBundle(), "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := result.Bundle["entry"].([]interface{})
	patient := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	telecoms := patient["telecom"].([]interface{})
	phone := telecoms[0].(map[string]interface{})["value"].(string)
	email := telecoms[1].(map[string]interface{})["value"].(string)
	if phone == "555-0100" {
		t.Fatal("phone number leaked through anonymization")
	}
	if email == "john@example.com" {
		t.Fatal("email leaked through anonymization")
	}
}

func TestAnonymizeUnknownTypePassesThrough(t *testing.T) {
	engine := NewEngine(staticResolver{})
	bundle := map[string]interface{}{
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Appointment",
					"comment":      "untouched",
				},
			},
		},
	}

	result, err := engine.Anonymize(context.Background(), bundle, "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PassedThrough != 1 {
		t.Fatalf("expected 1 passthrough, got %d", result.PassedThrough)
	}

	entries := result.Bundle["entry"].([]interface{})
	appointment := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if appointment["comment"] != "untouched" {
		t.Fatal("unsupported resource was modified")
	}
}

func TestAnonymizeFallsBackPerResource(t *testing.T) {
	engine := NewEngine(staticResolver{})
	bundle := map[string]interface{}{
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Patient",
					"id":           float64(42), // malformed: id must be a string
					"name": []interface{}{
						map[string]interface{}{"family": "Doe"},
					},
				},
			},
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Condition",
					"subject": map[string]interface{}{
						"reference": "Patient/patient-1",
					},
				},
			},
		},
	}

	result, err := engine.Anonymize(context.Background(), bundle, "patient-1")
	if err != nil {
		t.Fatalf("a per-resource failure must not abort the bundle: %v", err)
	}
	if result.Fallbacks != 1 {
		t.Fatalf("expected 1 fallback, got %d", result.Fallbacks)
	}
	if result.Anonymized != 1 {
		t.Fatalf("expected the condition to still be anonymized, got %d", result.Anonymized)
	}

	entries := result.Bundle["entry"].([]interface{})
	patient := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	name := patient["name"].([]interface{})[0].(map[string]interface{})
	if name["family"] != "Doe" {
		t.Fatal("fallback resource must keep its original content intact")
	}
}

func TestAnonymizeIsIdempotent(t *testing.T) {
	engine := NewEngine(staticResolver{})
	ctx := context.Background()

	first, err := engine.Anonymize(ctx, testBundle(), "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Anonymize(ctx, testBundle(), "patient-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstBytes, _ := json.Marshal(first.Bundle)
	secondBytes, _ := json.Marshal(second.Bundle)
	if string(firstBytes) != string(secondBytes) {
		t.Fatal("replaying the same input must produce byte-identical output")
	}
}

func TestAnonymizeDoesNotMutateInput(t *testing.T) {
	engine := NewEngine(staticResolver{})
	bundle := testBundle()
	if _, err := engine.Anonymize(context.Background(), bundle, "patient-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := bundle["entry"].([]interface{})
	patient := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if patient["id"] != "patient-1" {
		t.Fatal("input bundle was mutated")
	}
}
