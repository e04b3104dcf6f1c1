package game

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	out, ok := Normalize([]float64{2, 4, 6}, 0, 1)
	if !ok {
		t.Fatal("normalize failed on a well-formed vector")
	}

	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("normalize[%d] = %v; want %v", i, out[i], want[i])
		}
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	if _, ok := Normalize([]float64{2, 2, 2, 2}, 0, 1); ok {
		t.Fatal("all-equal vector should report degenerate range")
	}
	if _, ok := Normalize(nil, 0, 1); ok {
		t.Fatal("empty vector should report degenerate range")
	}
}

func TestFilterToTargetsPreservesOrder(t *testing.T) {
	all := []string{"sheep", "dragon", "clock", "duck"}
	labels, scores := FilterToTargets(all, []string{"duck", "sheep"}, []float64{0.1, 0.2, 0.3, 0.4})

	if len(labels) != 2 || labels[0] != "sheep" || labels[1] != "duck" {
		t.Fatalf("labels = %v; want [sheep duck] in allLabels order", labels)
	}
	if scores[0] != 0.1 || scores[1] != 0.4 {
		t.Fatalf("scores = %v; want [0.1 0.4]", scores)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		factor float64
	}{
		{"pair", []float64{0.2, 0.8}, 7},
		{"equal", []float64{0.5, 0.5}, 7},
		{"many", []float64{0.1, 0.9, 0.4, 0.3}, 2},
		{"unit factor", []float64{1, 2, 3}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Softmax(tc.values, tc.factor)

			var sum float64
			for _, c := range out {
				if c < 0 {
					t.Fatalf("negative confidence %v", c)
				}
				sum += c
			}
			if math.Abs(sum-1) > 1e-6 {
				t.Fatalf("confidences sum to %v; want 1", sum)
			}
		})
	}
}

func TestSoftmaxFactorAmplifiesSeparation(t *testing.T) {
	flat := Softmax([]float64{0.4, 0.6}, 1)
	sharp := Softmax([]float64{0.4, 0.6}, 7)

	if sharp[1]-sharp[0] <= flat[1]-flat[0] {
		t.Fatalf("factor 7 separation %v not larger than factor 1 separation %v",
			sharp[1]-sharp[0], flat[1]-flat[0])
	}
}

func TestAggregatorPipeline(t *testing.T) {
	agg := Aggregator{
		AllLabels:     []string{"sheep", "dragon", "clock", "duck"},
		TargetLabels:  []string{"sheep", "clock"},
		SoftmaxFactor: 7,
	}

	out, err := agg.Confidences([]float64{3, 0, 1, 2})
	if err != nil {
		t.Fatalf("confidences: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d confidences; want 2", len(out))
	}
	if out[0].Label != "sheep" || out[1].Label != "clock" {
		t.Fatalf("labels = %v,%v; want sheep,clock", out[0].Label, out[1].Label)
	}
	if out[0].Confidence <= out[1].Confidence {
		t.Fatalf("sheep (raw 3) should out-score clock (raw 1): %v vs %v",
			out[0].Confidence, out[1].Confidence)
	}

	sum := out[0].Confidence + out[1].Confidence
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("confidences sum to %v; want 1", sum)
	}
}

func TestAggregatorDegenerateUniform(t *testing.T) {
	// Scenario: raw scores [2,2,2,2] over four labels, all targeted.
	agg := Aggregator{
		AllLabels:     []string{"a", "b", "c", "d"},
		TargetLabels:  []string{"a", "b", "c", "d"},
		SoftmaxFactor: 7,
	}

	out, err := agg.Confidences([]float64{2, 2, 2, 2})
	if err != nil {
		t.Fatalf("confidences: %v", err)
	}
	for _, lc := range out {
		if math.Abs(lc.Confidence-0.25) > 1e-9 {
			t.Fatalf("%s confidence = %v; want 0.25", lc.Label, lc.Confidence)
		}
	}
}

func TestAggregatorLengthMismatch(t *testing.T) {
	agg := Aggregator{AllLabels: []string{"a", "b"}, TargetLabels: []string{"a"}, SoftmaxFactor: 7}
	if _, err := agg.Confidences([]float64{1, 2, 3}); err == nil {
		t.Fatal("want error for score vector length mismatch")
	}
}
