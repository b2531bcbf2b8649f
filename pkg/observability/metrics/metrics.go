package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	bundlesAnonymized  atomic.Int64
	bundlesDropped     atomic.Int64
	resourceFallbacks  atomic.Int64
	featureSetsEmitted atomic.Int64
	predictionsScored  atomic.Int64
	predictionsNeutral atomic.Int64
)

func IncBundlesAnonymized()  { bundlesAnonymized.Add(1) }
func IncBundlesDropped()     { bundlesDropped.Add(1) }
func IncFeatureSetsEmitted() { featureSetsEmitted.Add(1) }
func IncPredictionsScored()  { predictionsScored.Add(1) }
func IncPredictionsNeutral() { predictionsNeutral.Add(1) }

func AddResourceFallbacks(n int) { resourceFallbacks.Add(int64(n)) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP healthflow_pipeline_bundles_anonymized_total Number of bundles anonymized since process start.\n")
	fmt.Fprintf(w, "# TYPE healthflow_pipeline_bundles_anonymized_total counter\n")
	fmt.Fprintf(w, "healthflow_pipeline_bundles_anonymized_total %d\n", bundlesAnonymized.Load())

	fmt.Fprintf(w, "# HELP healthflow_pipeline_bundles_dropped_total Number of unprocessable messages dropped since process start.\n")
	fmt.Fprintf(w, "# TYPE healthflow_pipeline_bundles_dropped_total counter\n")
	fmt.Fprintf(w, "healthflow_pipeline_bundles_dropped_total %d\n", bundlesDropped.Load())

	fmt.Fprintf(w, "# HELP healthflow_pipeline_resource_fallbacks_total Number of resources passed through unmodified after anonymization failures.\n")
	fmt.Fprintf(w, "# TYPE healthflow_pipeline_resource_fallbacks_total counter\n")
	fmt.Fprintf(w, "healthflow_pipeline_resource_fallbacks_total %d\n", resourceFallbacks.Load())

	fmt.Fprintf(w, "# HELP healthflow_pipeline_feature_sets_emitted_total Number of feature sets extracted and published since process start.\n")
	fmt.Fprintf(w, "# TYPE healthflow_pipeline_feature_sets_emitted_total counter\n")
	fmt.Fprintf(w, "healthflow_pipeline_feature_sets_emitted_total %d\n", featureSetsEmitted.Load())

	fmt.Fprintf(w, "# HELP healthflow_pipeline_predictions_scored_total Number of risk predictions produced since process start.\n")
	fmt.Fprintf(w, "# TYPE healthflow_pipeline_predictions_scored_total counter\n")
	fmt.Fprintf(w, "healthflow_pipeline_predictions_scored_total %d\n", predictionsScored.Load())

	fmt.Fprintf(w, "# HELP healthflow_pipeline_predictions_neutral_total Number of predictions that fell back to the neutral score.\n")
	fmt.Fprintf(w, "# TYPE healthflow_pipeline_predictions_neutral_total counter\n")
	fmt.Fprintf(w, "healthflow_pipeline_predictions_neutral_total %d\n", predictionsNeutral.Load())
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	})
}
