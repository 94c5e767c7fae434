package inference

import (
	"testing"

	"go-model-inference/internal/preprocess"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, RiskVeryLow},
		{0.05, RiskVeryLow},
		{0.1, RiskLow},
		{0.25, RiskLow},
		{0.3, RiskModerate},
		{0.45, RiskModerate},
		{0.6, RiskHigh},
		{0.75, RiskHigh},
		{1, RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevel(tt.p), "p=%v", tt.p)
	}
}

func TestRiskFactors(t *testing.T) {
	tests := []struct {
		name   string
		record preprocess.StrokeRecord
		want   []string
	}{
		{
			name:   "defaults have no factors",
			record: preprocess.StrokeInput{}.WithDefaults(),
			want:   []string{},
		},
		{
			name: "hypertension age glucose",
			record: preprocess.StrokeRecord{
				Hypertension:    1,
				Age:             70,
				AvgGlucoseLevel: 150,
				SmokingStatus:   preprocess.SmokingNever,
			},
			want: []string{FactorHypertension, FactorAdvancedAge, FactorHighGlucose},
		},
		{
			name: "boundaries are exclusive",
			record: preprocess.StrokeRecord{
				Age:             65,
				AvgGlucoseLevel: 140,
				BMI:             30,
			},
			want: []string{},
		},
		{
			name: "everything",
			record: preprocess.StrokeRecord{
				Hypertension:    1,
				HeartDisease:    1,
				Age:             80,
				AvgGlucoseLevel: 200,
				BMI:             35,
				SmokingStatus:   preprocess.SmokingCurrent,
			},
			want: []string{FactorHypertension, FactorHeartDisease, FactorAdvancedAge, FactorHighGlucose, FactorObesity, FactorSmoker},
		},
		{
			name:   "former smoker",
			record: preprocess.StrokeRecord{SmokingStatus: preprocess.SmokingFormerly},
			want:   []string{FactorFormerSmoker},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskFactors(tt.record)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristicProbability(t *testing.T) {
	tests := []struct {
		name   string
		record preprocess.StrokeRecord
		want   float64
	}{
		{"base", preprocess.StrokeInput{}.WithDefaults(), 0.05},
		{"age over 55", preprocess.StrokeRecord{Age: 60}, 0.15},
		{"age over 65", preprocess.StrokeRecord{Age: 66}, 0.20},
		{"glucose over 140", preprocess.StrokeRecord{AvgGlucoseLevel: 150}, 0.10},
		{"glucose over 180", preprocess.StrokeRecord{AvgGlucoseLevel: 181}, 0.15},
		{"former smoker", preprocess.StrokeRecord{SmokingStatus: preprocess.SmokingFormerly}, 0.08},
		{"current smoker", preprocess.StrokeRecord{SmokingStatus: preprocess.SmokingCurrent}, 0.12},
		{"hypertension age glucose", preprocess.StrokeRecord{Hypertension: 1, Age: 70, AvgGlucoseLevel: 150}, 0.35},
		{
			"all factors",
			preprocess.StrokeRecord{
				Hypertension: 1, HeartDisease: 1, Age: 80, AvgGlucoseLevel: 200, BMI: 40,
				SmokingStatus: preprocess.SmokingCurrent,
			},
			0.62,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicProbability(tt.record)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, got, heuristicCap)
		})
	}
}

func TestStrokePredicted(t *testing.T) {
	assert.Equal(t, 0, StrokePredicted(0.5))
	assert.Equal(t, 1, StrokePredicted(0.5001))
	assert.Equal(t, 0, StrokePredicted(0.05))
}
