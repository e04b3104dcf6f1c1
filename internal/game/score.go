package game

import (
	"errors"
	"math"
)

// Aggregator turns a raw classifier output vector into per-target
// confidences: min-max normalize, restrict to the target labels, then a
// temperature-scaled softmax. Pure pipeline, no state beyond configuration.
type Aggregator struct {
	AllLabels     []string
	TargetLabels  []string
	SoftmaxFactor float64
}

var ErrScoreLength = errors.New("score vector length does not match label set")

// Normalize linearly rescales scores so the minimum maps to lo and the
// maximum to hi. ok is false when all scores are equal (zero range), the
// degenerate case callers must special-case.
func Normalize(scores []float64, lo, hi float64) ([]float64, bool) {
	if len(scores) == 0 {
		return nil, false
	}

	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if max == min {
		return nil, false
	}

	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = lo + (s-min)/(max-min)*(hi-lo)
	}
	return out, true
}

// FilterToTargets produces the parallel subsequence of labels and scores
// whose label is in targets, preserving the order of all.
func FilterToTargets(all, targets []string, scores []float64) ([]string, []float64) {
	targetSet := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		targetSet[t] = struct{}{}
	}

	var labels []string
	var filtered []float64
	for i, label := range all {
		if _, ok := targetSet[label]; ok && i < len(scores) {
			labels = append(labels, label)
			filtered = append(filtered, scores[i])
		}
	}
	return labels, filtered
}

// Softmax exponentiates each value scaled by factor and normalizes the
// result to sum to one. The factor amplifies separation between near-tied
// classes.
func Softmax(values []float64, factor float64) []float64 {
	exps := make([]float64, len(values))
	var total float64
	for i, v := range values {
		exps[i] = math.Exp(v * factor)
		total += exps[i]
	}

	out := make([]float64, len(values))
	for i, e := range exps {
		out[i] = e / total
	}
	return out
}

// Confidences runs the full pipeline on a raw score vector. A degenerate
// vector (all scores equal) yields a uniform distribution over the targets
// rather than dividing by a zero range.
func (a Aggregator) Confidences(raw []float64) ([]LabelConfidence, error) {
	if len(raw) != len(a.AllLabels) {
		return nil, ErrScoreLength
	}

	normalized, ok := Normalize(raw, 0, 1)
	if !ok {
		return a.uniform(), nil
	}

	labels, filtered := FilterToTargets(a.AllLabels, a.TargetLabels, normalized)
	if len(filtered) == 0 {
		return nil, errors.New("no target labels present in label set")
	}

	confidences := Softmax(filtered, a.SoftmaxFactor)

	out := make([]LabelConfidence, len(labels))
	for i, label := range labels {
		out[i] = LabelConfidence{Label: label, Confidence: confidences[i]}
	}
	return out, nil
}

func (a Aggregator) uniform() []LabelConfidence {
	labels, _ := FilterToTargets(a.AllLabels, a.TargetLabels, make([]float64, len(a.AllLabels)))
	out := make([]LabelConfidence, len(labels))
	for i, label := range labels {
		out[i] = LabelConfidence{Label: label, Confidence: 1 / float64(len(labels))}
	}
	return out
}
