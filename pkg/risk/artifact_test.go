package risk

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := PlaceholderArtifact()

	content, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "risk_model_latest.json"), content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadArtifact(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ModelVersion != original.ModelVersion {
		t.Fatalf("version mismatch: %s vs %s", loaded.ModelVersion, original.ModelVersion)
	}
	if len(loaded.FeatureNames) != len(original.FeatureNames) {
		t.Fatal("feature schema did not survive round trip")
	}
	if loaded.Weights.Bias != original.Weights.Bias {
		t.Fatal("bias did not survive round trip")
	}
}

func TestLoadArtifactMissingDir(t *testing.T) {
	if _, err := LoadArtifact(t.TempDir()); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestLoadArtifactRejectsMismatchedWidths(t *testing.T) {
	dir := t.TempDir()
	bad := Artifact{
		ModelVersion: "v2",
		FeatureNames: []string{"a", "b"},
	}
	bad.Weights.Coefficients = []float64{1}

	content, _ := json.Marshal(bad)
	if err := os.WriteFile(filepath.Join(dir, "risk_model_latest.json"), content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadArtifact(dir); err == nil {
		t.Fatal("expected error for coefficient/feature width mismatch")
	}
}

func TestLoadOrPlaceholderFallsBack(t *testing.T) {
	artifact := LoadOrPlaceholder(t.TempDir())
	if artifact.ModelVersion != "v1.0-placeholder" {
		t.Fatalf("expected placeholder fallback, got %s", artifact.ModelVersion)
	}
	if len(artifact.FeatureNames) != placeholderFeatures {
		t.Fatalf("expected %d features, got %d", placeholderFeatures, len(artifact.FeatureNames))
	}
}
