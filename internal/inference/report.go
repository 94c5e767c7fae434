package inference

import (
	"fmt"
	"strings"

	"go-model-inference/pkg/models"
)

// TextReport renders a prediction as the plain-text summary shown by the demo:
// label, confidence and every class probability as percentages.
func TextReport(p *models.ImagePrediction, classes []string) string {
	if p.Prediction == ErrorPrediction {
		return fmt.Sprintf("Error during prediction: %s\n", p.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Prediction: %s\n", p.Prediction)
	fmt.Fprintf(&b, "Confidence: %.2f%%\n\n", p.Confidence*100)
	b.WriteString("Class Probabilities:\n")
	for _, label := range classes {
		fmt.Fprintf(&b, "• %s: %.2f%%\n", label, p.Probabilities[label]*100)
	}
	if p.Fallback {
		fmt.Fprintf(&b, "\nNote: the model could not produce this result, it is a fallback estimate (%s)\n", p.Error)
	}
	return b.String()
}
