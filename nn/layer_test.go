package nn

import (
	"strings"
	"testing"
)

func TestDropoutInferencePassthrough(t *testing.T) {
	net, err := NewNetwork(NetworkConfig{Seed: 1}).
		AddLayer(Dropout(0.5).Build()).
		Build([]int{8})
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	out, err := net.Predict([][]float64{in})
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if out[0][i] != in[i] {
			t.Fatalf("inference output[%d] = %g, want %g", i, out[0][i], in[i])
		}
	}
}

func TestDropoutTrainingMasksAndScales(t *testing.T) {
	net, err := NewNetwork(NetworkConfig{Seed: 1}).
		AddLayer(Dropout(0.5).Build()).
		Build([]int{64})
	if err != nil {
		t.Fatal(err)
	}
	in := make([]float64, 64)
	for i := range in {
		in[i] = 1
	}
	out, err := net.Forward([][]float64{in}, true)
	if err != nil {
		t.Fatal(err)
	}
	dropped, kept := 0, 0
	for _, v := range out[0] {
		switch v {
		case 0:
			dropped++
		case 2:
			kept++
		default:
			t.Fatalf("dropout output %g, want 0 or 2", v)
		}
	}
	if dropped == 0 || kept == 0 {
		t.Fatalf("mask degenerate: %d dropped, %d kept", dropped, kept)
	}
}

func TestDropoutRejectsBadRate(t *testing.T) {
	_, err := NewNetwork(NetworkConfig{Seed: 1}).
		AddLayer(Dropout(1.0).Build()).
		Build([]int{4})
	if err == nil {
		t.Fatal("expected error for rate 1.0")
	}
}

func TestSummaryListsLayers(t *testing.T) {
	net := buildDigitNet(t, 0)
	s := net.Summary()
	for _, want := range []string{"conv2d", "max_pool2d", "flatten", "dense"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
	if !strings.Contains(s, "Total parameters") {
		t.Fatalf("summary missing total line:\n%s", s)
	}
}
