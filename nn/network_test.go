package nn

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"reflect"
	"testing"
)

func buildDigitNet(t *testing.T, seed int64) *Network {
	t.Helper()
	net, err := NewNetwork(NetworkConfig{Seed: seed}).
		AddLayer(Conv2D(6, [2]int{5, 5}).
			WithStride(1, 1).
			WithPadding("valid").
			WithActivation(ReLU()).
			WithInitializer(HeNormal(1.0)).
			WithBiasInitializer(Zeros()).
			WithBias(true).
			Build()).
		AddLayer(MaxPool2D([2]int{2, 2}).Build()).
		AddLayer(Conv2D(16, [2]int{5, 5}).
			WithStride(1, 1).
			WithPadding("valid").
			WithActivation(ReLU()).
			WithInitializer(HeNormal(1.0)).
			WithBiasInitializer(Zeros()).
			WithBias(true).
			Build()).
		AddLayer(MaxPool2D([2]int{2, 2}).Build()).
		AddLayer(Flatten().Build()).
		AddLayer(Dense(120).
			WithActivation(ReLU()).
			WithInitializer(HeNormal(1.0)).
			WithBiasInitializer(Zeros()).
			WithBias(true).
			Build()).
		AddLayer(Dense(84).
			WithActivation(ReLU()).
			WithInitializer(HeNormal(1.0)).
			WithBiasInitializer(Zeros()).
			WithBias(true).
			Build()).
		AddLayer(Dense(10).
			WithActivation(Linear()).
			WithInitializer(XavierNormal(1.0)).
			WithBiasInitializer(Zeros()).
			WithBias(true).
			Build()).
		Build([]int{32, 32, 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := net.Compile(CompileConfig{
		Optimizer: SGD(SGDConfig{LR: 0.01, Momentum: 0.9}),
		Loss:      CrossEntropy(CrossEntropyConfig{FromLogits: true}),
	}); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return net
}

func randomBatch(rng *rand.Rand, n, size int) [][]float64 {
	batch := make([][]float64, n)
	for i := range batch {
		batch[i] = make([]float64, size)
		for j := range batch[i] {
			batch[i][j] = rng.NormFloat64()
		}
	}
	return batch
}

func TestForwardOutputShape(t *testing.T) {
	net := buildDigitNet(t, 42)
	rng := rand.New(rand.NewSource(1))

	out, err := net.Forward(randomBatch(rng, 1, 32*32), true)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 10 {
		t.Fatalf("expected output shape (1,10), got (%d,%d)", len(out), len(out[0]))
	}
}

func TestForwardRejectsWrongSampleSize(t *testing.T) {
	net := buildDigitNet(t, 42)
	_, err := net.Forward([][]float64{make([]float64, 28*28)}, true)
	if err == nil {
		t.Fatal("expected shape mismatch error for 28x28 input")
	}
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ShapeError, got %T: %v", err, err)
	}
}

func TestZeroGradClearsAllAccumulators(t *testing.T) {
	net := buildDigitNet(t, 42)
	rng := rand.New(rand.NewSource(2))

	inputs := randomBatch(rng, 2, 32*32)
	targets := OneHot([]int{3, 7}, 10)

	if _, err := net.Forward(inputs, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := net.Backward(targets); err != nil {
		t.Fatalf("backward: %v", err)
	}

	nonzero := false
	for _, g := range net.grads {
		for _, v := range g.data {
			if v != 0 {
				nonzero = true
			}
		}
	}
	if !nonzero {
		t.Fatal("backward produced no gradient at all")
	}

	net.ZeroGrad()
	for i, g := range net.grads {
		for j, v := range g.data {
			if v != 0 {
				t.Fatalf("grad tensor %d element %d not zeroed: %v", i, j, v)
			}
		}
	}
}

func TestBackwardAccumulatesWithoutZeroGrad(t *testing.T) {
	net := buildDigitNet(t, 42)
	rng := rand.New(rand.NewSource(3))

	inputs := randomBatch(rng, 2, 32*32)
	targets := OneHot([]int{1, 2}, 10)

	net.ZeroGrad()
	if _, err := net.Forward(inputs, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := net.Backward(targets); err != nil {
		t.Fatalf("backward: %v", err)
	}
	once := net.grads[0].clone()

	// second backward over the same batch without a reset doubles the buffer
	if _, err := net.Forward(inputs, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := net.Backward(targets); err != nil {
		t.Fatalf("backward: %v", err)
	}
	for i, v := range net.grads[0].data {
		if math.Abs(v-2*once.data[i]) > 1e-9 {
			t.Fatalf("element %d: expected %v after double backward, got %v", i, 2*once.data[i], v)
		}
	}
}

func TestStepChangesParameters(t *testing.T) {
	net := buildDigitNet(t, 42)
	rng := rand.New(rand.NewSource(4))

	before := make([]*tensor, len(net.params))
	for i, p := range net.params {
		before[i] = p.clone()
	}

	inputs := randomBatch(rng, 4, 32*32)
	targets := OneHot([]int{0, 1, 2, 3}, 10)

	net.ZeroGrad()
	if _, err := net.Forward(inputs, true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := net.Loss(targets); err != nil {
		t.Fatalf("loss: %v", err)
	}
	if err := net.Backward(targets); err != nil {
		t.Fatalf("backward: %v", err)
	}
	if err := net.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	changed := false
	for i, p := range net.params {
		for j := range p.data {
			if p.data[j] != before[i].data[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Fatal("no parameter changed after a training step with nonzero learning rate")
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	net := buildDigitNet(t, 42)
	rng := rand.New(rand.NewSource(5))
	inputs := randomBatch(rng, 3, 32*32)

	out1, err := net.Predict(inputs)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	out2, err := net.Predict(inputs)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !reflect.DeepEqual(out1, out2) {
		t.Fatal("two inference passes over an unchanged model differ")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	net := buildDigitNet(t, 42)
	path := filepath.Join(t.TempDir(), "weights.json")
	if err := net.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := buildDigitNet(t, 7)
	if err := other.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	rng := rand.New(rand.NewSource(6))
	inputs := randomBatch(rng, 2, 32*32)
	out1, _ := net.Predict(inputs)
	out2, _ := other.Predict(inputs)
	if !reflect.DeepEqual(out1, out2) {
		t.Fatal("loaded network predicts differently from the saved one")
	}
}

func TestLifecycleErrors(t *testing.T) {
	net, err := NewNetwork(NetworkConfig{Seed: 1}).
		AddLayer(Dense(2).
			WithActivation(Linear()).
			WithInitializer(XavierNormal(1.0)).
			WithBiasInitializer(Zeros()).
			WithBias(true).
			Build()).
		Build([]int{4})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := net.Loss([][]float64{{1, 0}}); err == nil {
		t.Fatal("expected error computing loss before compile")
	}
	if err := net.Compile(CompileConfig{}); err == nil {
		t.Fatal("expected error compiling without optimizer and loss")
	}
}
