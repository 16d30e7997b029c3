package nn

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// Network is a sequential stack of layers. It exposes the primitive
// per-batch operations (ZeroGrad, Forward, Loss, Backward, Step) so a
// training driver owns the loop; the network only owns the math.
type Network struct {
	layers     []Layer
	optimizer  Optimizer
	loss       Loss
	compiled   bool
	built      bool
	rng        *rand.Rand
	inputShape []int
	sampleSize int

	params []*tensor
	grads  []*tensor

	lastOutput  *tensor
	lastTargets *tensor
}

// NetworkConfig for network construction
type NetworkConfig struct {
	Seed int64
}

// CompileConfig holds model compilation settings - all fields required
type CompileConfig struct {
	Optimizer Optimizer
	Loss      Loss
}

// NetworkBuilder for fluent API
type NetworkBuilder struct {
	network *Network
}

// NewNetwork creates a new network builder
func NewNetwork(config NetworkConfig) *NetworkBuilder {
	return &NetworkBuilder{
		network: &Network{
			layers: make([]Layer, 0),
			rng:    rand.New(rand.NewSource(config.Seed)),
		},
	}
}

// AddLayer appends a layer to the network
func (b *NetworkBuilder) AddLayer(layer Layer) *NetworkBuilder {
	b.network.layers = append(b.network.layers, layer)
	return b
}

// Build finalizes the network structure. The shape of every layer is fixed
// here; in particular the flattened feature count entering the first dense
// layer is derived from the last pooling stage and never revisited.
func (b *NetworkBuilder) Build(inputShape []int) (*Network, error) {
	n := b.network
	if len(n.layers) == 0 {
		return nil, errorf("network must have at least one layer")
	}
	if len(inputShape) == 0 {
		return nil, errorf("inputShape must be specified")
	}

	n.inputShape = inputShape
	n.sampleSize = 1
	for _, s := range inputShape {
		n.sampleSize *= s
	}

	currentShape := inputShape
	for i, layer := range n.layers {
		if err := layer.build(currentShape, n.rng); err != nil {
			return nil, errorf("layer %d (%s): %v", i, layer.name(), err)
		}
		if outShape := layer.outputShape(); outShape != nil {
			currentShape = outShape
		}
	}

	for _, layer := range n.layers {
		n.params = append(n.params, layer.parameters()...)
		n.grads = append(n.grads, layer.gradients()...)
	}

	n.built = true
	return n, nil
}

// Compile configures optimizer and loss
func (n *Network) Compile(config CompileConfig) error {
	if !n.built {
		return errorf("network must be built before compiling")
	}
	if config.Optimizer == nil {
		return errorf("Optimizer is required")
	}
	if config.Loss == nil {
		return errorf("Loss is required")
	}
	n.optimizer = config.Optimizer
	n.loss = config.Loss
	n.compiled = true
	return nil
}

// ZeroGrad clears every gradient accumulator. Call it at the start of each
// mini-batch; backward passes accumulate into the buffers otherwise.
func (n *Network) ZeroGrad() {
	for _, g := range n.grads {
		g.zero()
	}
}

// Forward runs the forward pass over one mini-batch. Each input row is one
// flattened sample of the network's input shape. The output is cached for
// a following Loss/Backward call. With training=false no dropout noise is
// applied and the cached state is only ever read, never trained on.
func (n *Network) Forward(inputs [][]float64, training bool) ([][]float64, error) {
	if !n.built {
		return nil, errorf("network must be built before forward")
	}
	x, err := n.toBatchTensor(inputs)
	if err != nil {
		return nil, err
	}

	out := x
	for _, layer := range n.layers {
		out, err = layer.forward(out, training)
		if err != nil {
			return nil, err
		}
	}

	n.lastOutput = out
	n.lastTargets = nil
	return rowsOf(out), nil
}

// Loss computes the compiled loss of the cached forward output against
// targets (one row per sample, e.g. one-hot class labels).
func (n *Network) Loss(targets [][]float64) (float64, error) {
	if !n.compiled {
		return 0, errorf("network must be compiled before computing loss")
	}
	if n.lastOutput == nil {
		return 0, errorf("Loss called before Forward")
	}
	t, err := n.targetTensor(targets)
	if err != nil {
		return 0, err
	}
	n.lastTargets = t
	return n.loss.compute(n.lastOutput, t), nil
}

// Backward propagates the loss gradient of the cached forward output back
// through every layer, accumulating into the gradient buffers.
func (n *Network) Backward(targets [][]float64) error {
	if !n.compiled {
		return errorf("network must be compiled before backward")
	}
	if n.lastOutput == nil {
		return errorf("Backward called before Forward")
	}
	t := n.lastTargets
	if t == nil {
		var err error
		t, err = n.targetTensor(targets)
		if err != nil {
			return err
		}
	}

	gradOut := newTensor(n.lastOutput.shape...)
	n.loss.gradient(n.lastOutput, t, gradOut)

	var err error
	for i := len(n.layers) - 1; i >= 0; i-- {
		gradOut, err = n.layers[i].backward(gradOut)
		if err != nil {
			return err
		}
	}
	return nil
}

// Step applies one optimizer update to every parameter.
func (n *Network) Step() error {
	if !n.compiled {
		return errorf("network must be compiled before stepping")
	}
	n.optimizer.step(n.params, n.grads)
	return nil
}

// Predict runs inference without touching training state (no dropout, no
// gradient bookkeeping consumed afterwards).
func (n *Network) Predict(inputs [][]float64) ([][]float64, error) {
	if !n.built {
		return nil, errorf("network must be built before prediction")
	}
	x, err := n.toBatchTensor(inputs)
	if err != nil {
		return nil, err
	}
	out := x
	for _, layer := range n.layers {
		out, err = layer.forward(out, false)
		if err != nil {
			return nil, err
		}
	}
	return rowsOf(out), nil
}

// NumParams returns the total trainable parameter count.
func (n *Network) NumParams() int {
	total := 0
	for _, p := range n.params {
		total += p.size()
	}
	return total
}

func (n *Network) toBatchTensor(inputs [][]float64) (*tensor, error) {
	if len(inputs) == 0 {
		return nil, errorf("empty batch")
	}
	shape := append([]int{len(inputs)}, n.inputShape...)
	x := newTensor(shape...)
	for i, row := range inputs {
		if len(row) != n.sampleSize {
			return nil, shapeErrorf("network", "forward", n.sampleSize, len(row))
		}
		copy(x.data[i*n.sampleSize:], row)
	}
	return x, nil
}

func (n *Network) targetTensor(targets [][]float64) (*tensor, error) {
	if len(targets) != n.lastOutput.shape[0] {
		return nil, shapeErrorf("network", "loss", n.lastOutput.shape[0], len(targets))
	}
	dim := len(targets[0])
	if dim != n.lastOutput.shape[1] {
		return nil, shapeErrorf("network", "loss", n.lastOutput.shape[1], dim)
	}
	t := newTensor(len(targets), dim)
	for i, row := range targets {
		copy(t.data[i*dim:], row)
	}
	return t, nil
}

func rowsOf(t *tensor) [][]float64 {
	batch := t.shape[0]
	cols := t.size() / batch
	out := make([][]float64, batch)
	for i := 0; i < batch; i++ {
		out[i] = make([]float64, cols)
		copy(out[i], t.data[i*cols:(i+1)*cols])
	}
	return out
}

// ModelState for serialization
type ModelState struct {
	Weights [][]float64 `json:"weights"`
	Shapes  [][]int     `json:"shapes"`
}

// Save writes model weights to a JSON file
func (n *Network) Save(path string) error {
	state := ModelState{}
	for _, p := range n.params {
		data := make([]float64, len(p.data))
		copy(data, p.data)
		state.Weights = append(state.Weights, data)
		state.Shapes = append(state.Shapes, p.shape)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(state)
}

// Load reads model weights from a JSON file written by Save
func (n *Network) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var state ModelState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return err
	}
	if len(state.Weights) != len(n.params) {
		return errorf("weight count mismatch: file has %d tensors, network has %d",
			len(state.Weights), len(n.params))
	}
	for i, p := range n.params {
		if len(state.Weights[i]) != len(p.data) {
			return errorf("tensor %d size mismatch: file has %d values, network has %d",
				i, len(state.Weights[i]), len(p.data))
		}
		copy(p.data, state.Weights[i])
	}
	return nil
}

// Summary returns a human-readable architecture description
func (n *Network) Summary() string {
	var b strings.Builder
	b.WriteString("Network Summary\n")
	b.WriteString("===============\n")
	for i, layer := range n.layers {
		layerParams := 0
		for _, p := range layer.parameters() {
			layerParams += p.size()
		}
		fmt.Fprintf(&b, "Layer %d: %s - %d params\n", i+1, layer.name(), layerParams)
	}
	b.WriteString("===============\n")
	fmt.Fprintf(&b, "Total parameters: %d\n", n.NumParams())
	return b.String()
}
