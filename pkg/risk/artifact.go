package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/healthflow/platform/pkg/common/logger"
	"github.com/healthflow/platform/pkg/ml/linear"
)

const (
	placeholderVersion  = "v1.0-placeholder"
	placeholderFeatures = 50
	placeholderSamples  = 1000
	placeholderSeed     = 42
)

// Artifact bundles everything the engine needs to score a feature map:
// the ordered feature schema, the fitted scaler and the logistic weights.
// Production artifacts are trained offline and dropped into the model
// directory as <name>_latest.json.
type Artifact struct {
	ModelVersion string         `json:"model_version"`
	FeatureNames []string       `json:"feature_names"`
	Scaler       linear.Scaler  `json:"scaler"`
	Weights      linear.Weights `json:"weights"`
}

// LoadArtifact reads risk_model_latest.json from dir.
func LoadArtifact(dir string) (Artifact, error) {
	path := filepath.Join(dir, "risk_model_latest.json")
	content, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("reading model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("parsing model artifact: %w", err)
	}
	if len(artifact.FeatureNames) == 0 {
		return Artifact{}, fmt.Errorf("model artifact %s has no feature names", path)
	}
	if len(artifact.Weights.Coefficients) != len(artifact.FeatureNames) {
		return Artifact{}, fmt.Errorf("model artifact %s: %d coefficients for %d features",
			path, len(artifact.Weights.Coefficients), len(artifact.FeatureNames))
	}
	return artifact, nil
}

// LoadOrPlaceholder tries the model directory first and falls back to the
// synthesized placeholder so a fresh deployment scores from the start.
func LoadOrPlaceholder(dir string) Artifact {
	artifact, err := LoadArtifact(dir)
	if err != nil {
		logger.Log.WithError(err).Warn("No trained model artifact found, synthesizing placeholder model")
		return PlaceholderArtifact()
	}
	logger.Log.WithField("model_version", artifact.ModelVersion).Info("Loaded risk model artifact")
	return artifact
}

// PlaceholderArtifact trains a small logistic model on synthetic data with
// plausible clinical structure: risk grows with age, condition counts and
// elevated heart rate. Deterministic so every replica converges on the same
// weights.
func PlaceholderArtifact() Artifact {
	rng := rand.New(rand.NewSource(placeholderSeed))

	names := placeholderFeatureNames()

	samples := make([][]float64, placeholderSamples)
	labels := make([]float64, placeholderSamples)
	for i := range samples {
		sample := make([]float64, placeholderFeatures)
		for j := range sample {
			sample[j] = rng.NormFloat64()
		}

		// age, clipped to a human range
		age := rng.NormFloat64()*20 + 50
		if age < 0 {
			age = 0
		}
		if age > 100 {
			age = 100
		}
		sample[0] = age

		// gender one-hots
		if rng.Float64() < 0.5 {
			sample[1], sample[2] = 1, 0
		} else {
			sample[1], sample[2] = 0, 1
		}

		// condition and medication counts
		for j := 3; j < 8; j++ {
			sample[j] = float64(poisson(rng, 2))
		}

		risk := 0.02*sample[0] + 0.3*sample[3] + 0.2*sample[4] + 0.15*sample[8] + rng.NormFloat64()*0.1
		if rng.Float64() < linear.Sigmoid(risk) {
			labels[i] = 1
		}
		samples[i] = sample
	}

	scaler := linear.FitScaler(samples)
	weights, metrics := linear.TrainLogistic(scaler.TransformAll(samples), labels, linear.Options{
		Epochs:       300,
		LearningRate: 0.1,
	})
	logger.Log.WithFields(map[string]interface{}{
		"accuracy": metrics.Accuracy,
		"loss":     metrics.Loss,
	}).Info("Placeholder risk model trained")

	return Artifact{
		ModelVersion: placeholderVersion,
		FeatureNames: names,
		Scaler:       scaler,
		Weights:      weights,
	}
}

func placeholderFeatureNames() []string {
	names := []string{
		"age", "gender_male", "gender_female",
		"total_conditions", "active_conditions", "chronic_conditions",
		"total_medications", "active_medications",
		"heart_rate_mean", "blood_pressure_mean", "temperature_mean",
		"condition_cardiovascular", "condition_diabetes", "condition_respiratory",
		"medication_cardiovascular", "medication_diabetes",
		"total_resources", "resource_diversity", "concept_cardiovascular",
		"text_emb_0", "text_emb_1", "text_emb_2",
	}
	for len(names) < placeholderFeatures {
		names = append(names, fmt.Sprintf("feature_%d", len(names)))
	}
	return names
}

// poisson draws via Knuth's product-of-uniforms method; fine for small lambda.
func poisson(rng *rand.Rand, lambda float64) int {
	threshold := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= threshold {
			return k
		}
		k++
	}
}
