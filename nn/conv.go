package nn

import (
	"math"
	"math/rand"
)

// Conv2DLayer - 2D convolution over NHWC input
type Conv2DLayer struct {
	filters     int
	kernelSize  [2]int
	stride      [2]int
	padding     string // "valid" or "same"
	activation  Activation
	initializer Initializer
	biasInit    Initializer
	useBias     bool
	weights     *tensor // [kernelH, kernelW, inChannels, outChannels]
	bias        *tensor
	input       *tensor
	preAct      *tensor
	gradW       *tensor
	gradB       *tensor
	inputShape  []int // [H, W, C]
	built       bool
}

type Conv2DBuilder struct {
	layer *Conv2DLayer
}

func Conv2D(filters int, kernelSize [2]int) *Conv2DBuilder {
	return &Conv2DBuilder{
		layer: &Conv2DLayer{
			filters:    filters,
			kernelSize: kernelSize,
			stride:     [2]int{1, 1},
			padding:    "valid",
		},
	}
}

func (b *Conv2DBuilder) WithStride(strideH, strideW int) *Conv2DBuilder {
	b.layer.stride = [2]int{strideH, strideW}
	return b
}

func (b *Conv2DBuilder) WithPadding(padding string) *Conv2DBuilder {
	b.layer.padding = padding
	return b
}

func (b *Conv2DBuilder) WithActivation(act Activation) *Conv2DBuilder {
	b.layer.activation = act
	return b
}

func (b *Conv2DBuilder) WithInitializer(init Initializer) *Conv2DBuilder {
	b.layer.initializer = init
	return b
}

func (b *Conv2DBuilder) WithBiasInitializer(init Initializer) *Conv2DBuilder {
	b.layer.biasInit = init
	return b
}

func (b *Conv2DBuilder) WithBias(useBias bool) *Conv2DBuilder {
	b.layer.useBias = useBias
	return b
}

func (b *Conv2DBuilder) Build() Layer {
	return b.layer
}

func (c *Conv2DLayer) build(inputShape []int, rng *rand.Rand) error {
	if len(inputShape) != 3 {
		return errorf("Conv2D requires input shape [H, W, C]")
	}
	if c.initializer == nil {
		return errorf("Conv2D requires initializer - use WithInitializer()")
	}
	if c.activation == nil {
		return errorf("Conv2D requires activation - use WithActivation()")
	}
	if c.useBias && c.biasInit == nil {
		return errorf("Conv2D with bias requires bias initializer - use WithBiasInitializer()")
	}

	c.inputShape = inputShape
	inChannels := inputShape[2]

	c.weights = newTensor(c.kernelSize[0], c.kernelSize[1], inChannels, c.filters)
	fanIn := c.kernelSize[0] * c.kernelSize[1] * inChannels
	fanOut := c.kernelSize[0] * c.kernelSize[1] * c.filters
	c.initializer.initialize(c.weights, fanIn, fanOut, rng)
	c.gradW = newTensor(c.kernelSize[0], c.kernelSize[1], inChannels, c.filters)

	if c.useBias {
		c.bias = newTensor(c.filters)
		c.biasInit.initialize(c.bias, fanIn, fanOut, rng)
		c.gradB = newTensor(c.filters)
	}

	c.built = true
	return nil
}

func (c *Conv2DLayer) computeOutputSize(inputH, inputW int) (int, int) {
	if c.padding == "same" {
		outH := (inputH + c.stride[0] - 1) / c.stride[0]
		outW := (inputW + c.stride[1] - 1) / c.stride[1]
		return outH, outW
	}
	outH := (inputH-c.kernelSize[0])/c.stride[0] + 1
	outW := (inputW-c.kernelSize[1])/c.stride[1] + 1
	return outH, outW
}

func (c *Conv2DLayer) padOffsets(inputH, inputW, outH, outW int) (int, int) {
	if c.padding != "same" {
		return 0, 0
	}
	padH := maxInt((outH-1)*c.stride[0]+c.kernelSize[0]-inputH, 0)
	padW := maxInt((outW-1)*c.stride[1]+c.kernelSize[1]-inputW, 0)
	return padH / 2, padW / 2
}

func (c *Conv2DLayer) forward(input *tensor, training bool) (*tensor, error) {
	if !c.built {
		return nil, errorf("Conv2D not built - call Build() first")
	}
	if len(input.shape) != 4 {
		return nil, shapeErrorf("conv2d", "forward", "[N H W C]", input.shape)
	}

	batchSize := input.shape[0]
	inputH := input.shape[1]
	inputW := input.shape[2]
	inChannels := input.shape[3]
	if inChannels != c.inputShape[2] {
		return nil, shapeErrorf("conv2d", "forward", c.inputShape[2], inChannels)
	}

	outH, outW := c.computeOutputSize(inputH, inputW)
	padTop, padLeft := c.padOffsets(inputH, inputW, outH, outW)

	c.input = input
	c.preAct = newTensor(batchSize, outH, outW, c.filters)

	inRow := inputW * inChannels
	wRow := c.kernelSize[1] * inChannels * c.filters

	for b := 0; b < batchSize; b++ {
		inBase := b * inputH * inRow
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				outIdx := ((b*outH+oh)*outW + ow) * c.filters
				for f := 0; f < c.filters; f++ {
					sum := 0.0
					if c.useBias {
						sum = c.bias.data[f]
					}
					for kh := 0; kh < c.kernelSize[0]; kh++ {
						ih := oh*c.stride[0] + kh - padTop
						if ih < 0 || ih >= inputH {
							continue
						}
						for kw := 0; kw < c.kernelSize[1]; kw++ {
							iw := ow*c.stride[1] + kw - padLeft
							if iw < 0 || iw >= inputW {
								continue
							}
							inIdx := inBase + ih*inRow + iw*inChannels
							wIdx := kh*wRow + kw*inChannels*c.filters + f
							for ic := 0; ic < inChannels; ic++ {
								sum += input.data[inIdx+ic] * c.weights.data[wIdx+ic*c.filters]
							}
						}
					}
					c.preAct.data[outIdx+f] = sum
				}
			}
		}
	}

	output := newTensor(c.preAct.shape...)
	c.activation.forward(c.preAct, output)
	return output, nil
}

func (c *Conv2DLayer) backward(gradOutput *tensor) (*tensor, error) {
	if c.input == nil {
		return nil, errorf("Conv2D backward called before forward")
	}

	batchSize := c.input.shape[0]
	inputH := c.input.shape[1]
	inputW := c.input.shape[2]
	inChannels := c.input.shape[3]
	outH := gradOutput.shape[1]
	outW := gradOutput.shape[2]

	gradPreAct := newTensor(gradOutput.shape...)
	c.activation.backward(c.preAct, gradOutput, gradPreAct)

	padTop, padLeft := c.padOffsets(inputH, inputW, outH, outW)

	gradInput := newTensor(c.input.shape...)
	inRow := inputW * inChannels
	wRow := c.kernelSize[1] * inChannels * c.filters

	// gradW and gradB accumulate until ZeroGrad
	for b := 0; b < batchSize; b++ {
		inBase := b * inputH * inRow
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				outIdx := ((b*outH+oh)*outW + ow) * c.filters
				for f := 0; f < c.filters; f++ {
					dout := gradPreAct.data[outIdx+f]
					if dout == 0 {
						continue
					}
					if c.useBias {
						c.gradB.data[f] += dout
					}
					for kh := 0; kh < c.kernelSize[0]; kh++ {
						ih := oh*c.stride[0] + kh - padTop
						if ih < 0 || ih >= inputH {
							continue
						}
						for kw := 0; kw < c.kernelSize[1]; kw++ {
							iw := ow*c.stride[1] + kw - padLeft
							if iw < 0 || iw >= inputW {
								continue
							}
							inIdx := inBase + ih*inRow + iw*inChannels
							wIdx := kh*wRow + kw*inChannels*c.filters + f
							for ic := 0; ic < inChannels; ic++ {
								c.gradW.data[wIdx+ic*c.filters] += c.input.data[inIdx+ic] * dout
								gradInput.data[inIdx+ic] += c.weights.data[wIdx+ic*c.filters] * dout
							}
						}
					}
				}
			}
		}
	}

	return gradInput, nil
}

func (c *Conv2DLayer) parameters() []*tensor {
	if c.useBias {
		return []*tensor{c.weights, c.bias}
	}
	return []*tensor{c.weights}
}

func (c *Conv2DLayer) gradients() []*tensor {
	if c.useBias {
		return []*tensor{c.gradW, c.gradB}
	}
	return []*tensor{c.gradW}
}

func (c *Conv2DLayer) outputShape() []int {
	outH, outW := c.computeOutputSize(c.inputShape[0], c.inputShape[1])
	return []int{outH, outW, c.filters}
}

func (c *Conv2DLayer) name() string { return "conv2d" }

// MaxPool2DLayer - max pooling
type MaxPool2DLayer struct {
	poolSize   [2]int
	stride     [2]int
	inputShape []int
	maxIndices []int
	built      bool
}

type MaxPool2DBuilder struct {
	layer *MaxPool2DLayer
}

func MaxPool2D(poolSize [2]int) *MaxPool2DBuilder {
	return &MaxPool2DBuilder{
		layer: &MaxPool2DLayer{
			poolSize: poolSize,
			stride:   poolSize, // default stride = pool size
		},
	}
}

func (b *MaxPool2DBuilder) WithStride(strideH, strideW int) *MaxPool2DBuilder {
	b.layer.stride = [2]int{strideH, strideW}
	return b
}

func (b *MaxPool2DBuilder) Build() Layer {
	return b.layer
}

func (m *MaxPool2DLayer) build(inputShape []int, rng *rand.Rand) error {
	if len(inputShape) != 3 {
		return errorf("MaxPool2D requires input shape [H, W, C]")
	}
	m.inputShape = inputShape
	m.built = true
	return nil
}

func (m *MaxPool2DLayer) computeOutputSize(inputH, inputW int) (int, int) {
	outH := (inputH-m.poolSize[0])/m.stride[0] + 1
	outW := (inputW-m.poolSize[1])/m.stride[1] + 1
	return outH, outW
}

func (m *MaxPool2DLayer) forward(input *tensor, training bool) (*tensor, error) {
	batchSize := input.shape[0]
	inputH := input.shape[1]
	inputW := input.shape[2]
	channels := input.shape[3]

	outH, outW := m.computeOutputSize(inputH, inputW)
	output := newTensor(batchSize, outH, outW, channels)
	m.maxIndices = make([]int, output.size())

	inRow := inputW * channels
	for b := 0; b < batchSize; b++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				for ch := 0; ch < channels; ch++ {
					best := math.Inf(-1)
					bestIdx := 0
					for ph := 0; ph < m.poolSize[0]; ph++ {
						ih := oh*m.stride[0] + ph
						if ih >= inputH {
							continue
						}
						for pw := 0; pw < m.poolSize[1]; pw++ {
							iw := ow*m.stride[1] + pw
							if iw >= inputW {
								continue
							}
							idx := b*inputH*inRow + ih*inRow + iw*channels + ch
							if input.data[idx] > best {
								best = input.data[idx]
								bestIdx = idx
							}
						}
					}
					outIdx := ((b*outH+oh)*outW+ow)*channels + ch
					output.data[outIdx] = best
					m.maxIndices[outIdx] = bestIdx
				}
			}
		}
	}

	return output, nil
}

func (m *MaxPool2DLayer) backward(gradOutput *tensor) (*tensor, error) {
	if m.maxIndices == nil {
		return nil, errorf("MaxPool2D backward called before forward")
	}
	shape := append([]int{gradOutput.shape[0]}, m.inputShape...)
	gradInput := newTensor(shape...)
	for outIdx, inIdx := range m.maxIndices {
		gradInput.data[inIdx] += gradOutput.data[outIdx]
	}
	return gradInput, nil
}

func (m *MaxPool2DLayer) parameters() []*tensor { return nil }
func (m *MaxPool2DLayer) gradients() []*tensor  { return nil }

func (m *MaxPool2DLayer) outputShape() []int {
	outH, outW := m.computeOutputSize(m.inputShape[0], m.inputShape[1])
	return []int{outH, outW, m.inputShape[2]}
}

func (m *MaxPool2DLayer) name() string { return "max_pool2d" }
