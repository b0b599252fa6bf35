// Package normalize provides score math utilities shared by the ranking stages.
package normalize

// Clamp ensures a score is in valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// InvertedMinMax maps value onto [0, 1] where min scores 1 and max scores 0.
// A degenerate range (max == min) scores 1 so equal candidates keep full credit.
func InvertedMinMax(value, min, max float64) float64 {
	if max == min {
		return 1.0
	}
	return Clamp(1 - (value-min)/(max-min))
}

// WeightedSum combines scores with weights. Weights are not normalized.
func WeightedSum(scores []float64, weights []float64) float64 {
	if len(scores) == 0 || len(scores) != len(weights) {
		return 0
	}

	var sum float64
	for i, s := range scores {
		sum += s * weights[i]
	}
	return sum
}
