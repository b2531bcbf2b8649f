package featurizer

import (
	"math"
	"regexp"
	"strings"
)

var slugify = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize coerces every raw feature to a number. Missing values become
// zero, non-finite values become zero, booleans become 0/1, and categorical
// strings are expanded into one-hot features instead of passing through.
func Normalize(raw map[string]interface{}) map[string]float64 {
	out := make(map[string]float64, len(raw))

	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			out[key] = 0
		case bool:
			if v {
				out[key] = 1
			} else {
				out[key] = 0
			}
		case string:
			slug := strings.Trim(slugify.ReplaceAllString(strings.ToLower(v), "_"), "_")
			if slug == "" {
				out[key] = 0
				continue
			}
			out[key+"_"+slug] = 1
		default:
			if f, ok := toFloat(value); ok {
				if math.IsNaN(f) || math.IsInf(f, 0) {
					out[key] = 0
				} else {
					out[key] = f
				}
			}
		}
	}

	return out
}
