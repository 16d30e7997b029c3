package nn

import (
	"math"
	"testing"
)

func applyActivation(act Activation, vals []float64) []float64 {
	x := newTensor(len(vals))
	copy(x.data, vals)
	out := newTensor(len(vals))
	act.forward(x, out)
	return out.data
}

func TestSigmoidValues(t *testing.T) {
	got := applyActivation(Sigmoid(), []float64{0, 2, -2, -1000, 1000})
	want := []float64{0.5, 1 / (1 + math.Exp(-2)), 1 / (1 + math.Exp(2)), 0, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("sigmoid[%d] = %g, want %g", i, got[i], want[i])
		}
		if math.IsNaN(got[i]) || math.IsInf(got[i], 0) {
			t.Fatalf("sigmoid[%d] not finite: %g", i, got[i])
		}
	}
}

func TestTanhGradient(t *testing.T) {
	act := Tanh()
	x := newTensor(3)
	copy(x.data, []float64{-1, 0, 1})
	gradOut := newTensor(3)
	gradOut.fill(1)
	gradIn := newTensor(3)
	act.backward(x, gradOut, gradIn)
	for i, v := range x.data {
		th := math.Tanh(v)
		want := 1 - th*th
		if math.Abs(gradIn.data[i]-want) > 1e-12 {
			t.Fatalf("tanh grad[%d] = %g, want %g", i, gradIn.data[i], want)
		}
	}
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	x := newTensor(2, 3)
	copy(x.data, []float64{1, 2, 3, -1, 0, 1000})
	out := newTensor(2, 3)
	Softmax().forward(x, out)
	for r := 0; r < 2; r++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			v := out.data[r*3+c]
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("softmax[%d,%d] = %g out of range", r, c, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("row %d sums to %g, want 1", r, sum)
		}
	}
}

func TestReLUClampsNegatives(t *testing.T) {
	got := applyActivation(ReLU(), []float64{-3, 0, 5})
	want := []float64{0, 0, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relu[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}
