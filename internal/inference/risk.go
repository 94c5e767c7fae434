package inference

import (
	"math"

	"go-model-inference/internal/preprocess"
)

// Risk tiers
const (
	RiskVeryLow  = "Very Low Risk"
	RiskLow      = "Low Risk"
	RiskModerate = "Moderate Risk"
	RiskHigh     = "High Risk"
)

// Risk factor annotations
const (
	FactorHypertension = "Hypertension"
	FactorHeartDisease = "Heart Disease"
	FactorAdvancedAge  = "Advanced Age (65+)"
	FactorHighGlucose  = "High Blood Glucose (>140)"
	FactorObesity      = "Obesity (BMI > 30)"
	FactorFormerSmoker = "Former Smoker"
	FactorSmoker       = "Current Smoker"
)

// Heuristic score increments
const (
	heuristicBase         = 0.05
	heuristicCap          = 0.8
	hypertensionIncrement = 0.10
	heartDiseaseIncrement = 0.10
	ageOver65Increment    = 0.15
	ageOver55Increment    = 0.10
	glucoseOver180        = 0.10
	glucoseOver140        = 0.05
	obesityIncrement      = 0.05
	smokerIncrement       = 0.07
	formerSmokerIncrement = 0.03
)

// strokeThreshold turns a probability into the binary stroke prediction
const strokeThreshold = 0.5

// RiskLevel buckets a probability into one of four tiers
func RiskLevel(p float64) string {
	switch {
	case p < 0.1:
		return RiskVeryLow
	case p < 0.3:
		return RiskLow
	case p < 0.6:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// RiskFactors lists the threshold annotations for a record. It reads only the
// raw input and never the model output.
func RiskFactors(r preprocess.StrokeRecord) []string {
	factors := []string{}
	if r.Hypertension == 1 {
		factors = append(factors, FactorHypertension)
	}
	if r.HeartDisease == 1 {
		factors = append(factors, FactorHeartDisease)
	}
	if r.Age > 65 {
		factors = append(factors, FactorAdvancedAge)
	}
	if r.AvgGlucoseLevel > 140 {
		factors = append(factors, FactorHighGlucose)
	}
	if r.BMI > 30 {
		factors = append(factors, FactorObesity)
	}
	if r.SmokingStatus == preprocess.SmokingFormerly {
		factors = append(factors, FactorFormerSmoker)
	}
	if r.SmokingStatus == preprocess.SmokingCurrent {
		factors = append(factors, FactorSmoker)
	}
	return factors
}

// HeuristicProbability is the rule-based stroke score used when the model
// path fails. It is independent of the model and is never blended with it.
func HeuristicProbability(r preprocess.StrokeRecord) float64 {
	p := heuristicBase

	if r.Hypertension == 1 {
		p += hypertensionIncrement
	}
	if r.HeartDisease == 1 {
		p += heartDiseaseIncrement
	}

	switch {
	case r.Age > 65:
		p += ageOver65Increment
	case r.Age > 55:
		p += ageOver55Increment
	}

	switch {
	case r.AvgGlucoseLevel > 180:
		p += glucoseOver180
	case r.AvgGlucoseLevel > 140:
		p += glucoseOver140
	}

	if r.BMI > 30 {
		p += obesityIncrement
	}

	switch r.SmokingStatus {
	case preprocess.SmokingCurrent:
		p += smokerIncrement
	case preprocess.SmokingFormerly:
		p += formerSmokerIncrement
	}

	return math.Min(p, heuristicCap)
}

// StrokePredicted is the binary prediction for a probability
func StrokePredicted(p float64) int {
	if p > strokeThreshold {
		return 1
	}
	return 0
}
