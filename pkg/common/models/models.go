package models

// Pipeline stage messages. Every stage consumes one of these from its input
// topic and produces the next one on its output topic, keyed by the patient
// pseudonym so all messages for one patient land on the same partition.

// RawBundleEvent carries a serialized clinical bundle into the pipeline.
type RawBundleEvent struct {
	BundleID  string                 `json:"bundleId"`
	PatientID string                 `json:"patientId"`
	Bundle    map[string]interface{} `json:"bundle"`
	Timestamp int64                  `json:"timestamp"`
	Source    string                 `json:"source"`
	EventType string                 `json:"eventType"`
}

// AnonymizedEvent is the output of the de-identification stage. The bundle is
// carried as serialized JSON, byte-identical across replays of the same input.
type AnonymizedEvent struct {
	OriginalBundleID string `json:"originalBundleId"`
	PatientPseudoID  string `json:"patientPseudoId"`
	AnonymizedBundle string `json:"anonymizedBundle"`
	Timestamp        int64  `json:"timestamp"`
	Source           string `json:"source"`
	EventType        string `json:"eventType"`
}

// FeatureEvent is the output of the feature extraction stage. Values are
// numeric after normalization, but the map is typed loosely so the scoring
// stage re-coerces rather than trusting upstream.
type FeatureEvent struct {
	PatientPseudoID string                 `json:"patientPseudoId"`
	Features        map[string]interface{} `json:"features"`
	FeatureCount    int                    `json:"featureCount"`
	Timestamp       int64                  `json:"timestamp"`
	Source          string                 `json:"source"`
	EventType       string                 `json:"eventType"`
}

// RiskEvent is the output of the risk scoring stage.
type RiskEvent struct {
	PatientPseudoID string   `json:"patientPseudoId"`
	RiskScore       float64  `json:"riskScore"`
	Confidence      float64  `json:"confidence"`
	RiskLevel       string   `json:"riskLevel"`
	Explanation     string   `json:"explanation"`
	TopRiskFactors  []string `json:"topRiskFactors"`
	ModelVersion    string   `json:"modelVersion"`
	Timestamp       int64    `json:"timestamp"`
	Source          string   `json:"source"`
	EventType       string   `json:"eventType"`
}

const (
	EventTypeBundleReceived  = "fhir_bundle_received"
	EventTypeAnonymized      = "fhir_data_anonymized"
	EventTypeFeaturesReady   = "features_extracted"
	EventTypeRiskCalculated  = "risk_score_calculated"
)
