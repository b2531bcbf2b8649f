package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/healthflow/platform/pkg/ml/linear"
)

// Contribution is one feature's signed pull on the score: positive pushes
// toward high risk, negative toward low. Value is coefficient times the
// scaled feature value, so the shape survives a model swap.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Prediction is the full scoring result for one feature map.
type Prediction struct {
	RiskScore    float64
	Confidence   float64
	RiskLevel    string
	Attribution  []Contribution
	ModelVersion string
}

// Engine scores normalized feature maps against a loaded model artifact.
type Engine struct {
	artifact Artifact
}

func NewEngine(artifact Artifact) *Engine {
	return &Engine{artifact: artifact}
}

func (e *Engine) ModelVersion() string {
	return e.artifact.ModelVersion
}

func (e *Engine) FeatureCount() int {
	return len(e.artifact.FeatureNames)
}

// Vectorize builds the model-order vector from an arbitrary feature map.
// Missing features and values that cannot be read as numbers become 0, so
// the vector is always exactly as wide as the model expects.
func (e *Engine) Vectorize(features map[string]interface{}) []float64 {
	vector := make([]float64, len(e.artifact.FeatureNames))
	for i, name := range e.artifact.FeatureNames {
		raw, ok := features[name]
		if !ok {
			continue
		}
		vector[i] = coerceFloat(raw)
	}
	return vector
}

// Score runs the whole inference path: vectorize, scale, predict, attribute.
// It never fails; an engine with no usable model returns Neutral().
func (e *Engine) Score(features map[string]interface{}) Prediction {
	if len(e.artifact.FeatureNames) == 0 || len(e.artifact.Weights.Coefficients) == 0 {
		return e.Neutral()
	}

	scaled := e.artifact.Scaler.Transform(e.Vectorize(features))
	score := linear.Predict(e.artifact.Weights, scaled)

	confidence := score
	if 1-score > confidence {
		confidence = 1 - score
	}
	confidence -= 0.5

	return Prediction{
		RiskScore:    score,
		Confidence:   confidence,
		RiskLevel:    Level(score),
		Attribution:  e.attribute(scaled),
		ModelVersion: e.artifact.ModelVersion,
	}
}

// Neutral is the degraded-mode result: no signal, no attribution.
func (e *Engine) Neutral() Prediction {
	return Prediction{
		RiskScore:    0.5,
		Confidence:   0,
		RiskLevel:    Level(0.5),
		ModelVersion: e.artifact.ModelVersion,
	}
}

func (e *Engine) attribute(scaled []float64) []Contribution {
	var contributions []Contribution
	for i, name := range e.artifact.FeatureNames {
		if i >= len(e.artifact.Weights.Coefficients) {
			break
		}
		v := e.artifact.Weights.Coefficients[i] * scaled[i]
		if abs(v) <= 0.001 {
			continue
		}
		contributions = append(contributions, Contribution{Feature: name, Value: v})
	}
	sort.SliceStable(contributions, func(a, b int) bool {
		return abs(contributions[a].Value) > abs(contributions[b].Value)
	})
	return contributions
}

// Level maps a probability onto the alerting tiers.
func Level(score float64) string {
	switch {
	case score < 0.3:
		return "LOW"
	case score < 0.6:
		return "MODERATE"
	case score < 0.8:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

// ExplanationText renders the top contributions as a clinician-readable
// sentence.
func ExplanationText(attribution []Contribution) string {
	if len(attribution) == 0 {
		return "No significant risk factors identified."
	}
	top := attribution
	if len(top) > 5 {
		top = top[:5]
	}
	parts := make([]string, 0, len(top))
	for _, c := range top {
		direction := "increases"
		if c.Value < 0 {
			direction = "decreases"
		}
		parts = append(parts, fmt.Sprintf("%s %s risk (impact: %.3f)", titleCase(c.Feature), direction, c.Value))
	}
	return "Key risk factors: " + strings.Join(parts, "; ")
}

// TopFactors returns the names of the strongest contributors, at most three.
func TopFactors(attribution []Contribution) []string {
	n := len(attribution)
	if n > 3 {
		n = 3
	}
	factors := make([]string, 0, n)
	for _, c := range attribution[:n] {
		factors = append(factors, c.Feature)
	}
	return factors
}

func titleCase(feature string) string {
	words := strings.Split(feature, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func coerceFloat(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
