package models

// ImagePrediction is the response of the image classification endpoints.
// Fallback is set when the result was synthesized instead of produced by the
// model; Error then carries the cause.
type ImagePrediction struct {
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Fallback      bool               `json:"fallback,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// StrokePrediction is the response of the stroke risk endpoint
type StrokePrediction struct {
	Probability      float64  `json:"probability"`
	Prediction       string   `json:"prediction"`
	StrokePrediction int      `json:"stroke_prediction"`
	RiskFactors      []string `json:"risk_factors"`
	ExecutionTimeMs  float64  `json:"execution_time_ms"`
	Fallback         bool     `json:"fallback,omitempty"`
	Error            string   `json:"error,omitempty"`
}
