package linear

import "math"

// Scaler standardizes feature vectors with parameters fit at training time.
// The fitted means and stddevs are persisted alongside the model weights so
// serving applies exactly the training-time transform.
type Scaler struct {
	Means   []float64 `json:"means"`
	Stddevs []float64 `json:"stddevs"`
}

// FitScaler computes per-column mean and population standard deviation.
// Zero-variance columns get a stddev of 1 so transforming them is a no-op.
func FitScaler(samples [][]float64) Scaler {
	if len(samples) == 0 {
		return Scaler{}
	}
	featureCount := len(samples[0])
	means := make([]float64, featureCount)
	stddevs := make([]float64, featureCount)

	for _, sample := range samples {
		for j, v := range sample {
			means[j] += v
		}
	}
	n := float64(len(samples))
	for j := range means {
		means[j] /= n
	}

	for _, sample := range samples {
		for j, v := range sample {
			d := v - means[j]
			stddevs[j] += d * d
		}
	}
	for j := range stddevs {
		stddevs[j] = math.Sqrt(stddevs[j] / n)
		if stddevs[j] == 0 {
			stddevs[j] = 1
		}
	}

	return Scaler{Means: means, Stddevs: stddevs}
}

// Transform standardizes one sample in place-compatible fashion, returning a
// new slice. Columns beyond the fitted width pass through unscaled.
func (s Scaler) Transform(sample []float64) []float64 {
	out := make([]float64, len(sample))
	for j, v := range sample {
		if j < len(s.Means) && j < len(s.Stddevs) {
			out[j] = (v - s.Means[j]) / s.Stddevs[j]
		} else {
			out[j] = v
		}
	}
	return out
}

// TransformAll standardizes a batch.
func (s Scaler) TransformAll(samples [][]float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i, sample := range samples {
		out[i] = s.Transform(sample)
	}
	return out
}
