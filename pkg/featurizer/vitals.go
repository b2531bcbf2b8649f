package featurizer

import "math"

// extractVitals groups repeated observations by canonical vital-sign name and
// computes per-group summary statistics. Values keep bundle order, so
// "latest" is the last value seen and the trend slope follows encounter
// order.
func (x *Extractor) extractVitals(observations []map[string]interface{}) map[string]interface{} {
	grouped := make(map[string][]float64)
	order := make([]string, 0)

	for _, obs := range observations {
		display := firstCodingDisplay(obs["code"])
		if display == "" {
			continue
		}
		vital, ok := x.catalog.VitalName(display)
		if !ok {
			continue
		}
		quantity := asMap(obs["valueQuantity"])
		if quantity == nil {
			continue
		}
		value, ok := toFloat(quantity["value"])
		if !ok {
			continue
		}
		if _, seen := grouped[vital]; !seen {
			order = append(order, vital)
		}
		grouped[vital] = append(grouped[vital], value)
	}

	features := make(map[string]interface{})
	for _, vital := range order {
		values := grouped[vital]
		features[vital+"_count"] = len(values)
		features[vital+"_mean"] = mean(values)
		features[vital+"_std"] = stddev(values)
		features[vital+"_min"] = minOf(values)
		features[vital+"_max"] = maxOf(values)
		features[vital+"_latest"] = values[len(values)-1]
		if len(values) > 1 {
			features[vital+"_trend"] = slope(values)
		}
	}
	return features
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func minOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func maxOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

// slope is the least-squares slope of values against their index 0..n-1.
func slope(values []float64) float64 {
	n := float64(len(values))
	xMean := (n - 1) / 2
	yMean := mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
