package nn

import "math"

// Loss computes a scalar loss and its gradient with respect to predictions
type Loss interface {
	compute(pred, target *tensor) float64
	gradient(pred, target *tensor, gradOut *tensor)
	name() string
}

// MSELoss - Mean Squared Error
type MSELoss struct {
	Reduction string // "mean" or "sum"
}

type MSEConfig struct {
	Reduction string
}

func MSE(config MSEConfig) Loss {
	return &MSELoss{Reduction: config.Reduction}
}

func (m *MSELoss) compute(pred, target *tensor) float64 {
	sum := 0.0
	for i := range pred.data {
		diff := pred.data[i] - target.data[i]
		sum += diff * diff
	}
	if m.Reduction == "mean" {
		return sum / float64(len(pred.data))
	}
	return sum
}

func (m *MSELoss) gradient(pred, target *tensor, gradOut *tensor) {
	scale := 2.0
	if m.Reduction == "mean" {
		scale = 2.0 / float64(len(pred.data))
	}
	for i := range pred.data {
		gradOut.data[i] = scale * (pred.data[i] - target.data[i])
	}
}

func (m *MSELoss) name() string { return "mse" }

// CrossEntropyLoss - multi-class classification loss.
//
// With FromLogits the predictions are raw scores: the loss applies a
// numerically stable log-softmax internally and its gradient is
// softmax(pred) - target. Without FromLogits the predictions must already
// be probabilities (e.g. a Softmax output layer).
type CrossEntropyLoss struct {
	FromLogits     bool
	LabelSmoothing float64
}

type CrossEntropyConfig struct {
	FromLogits     bool
	LabelSmoothing float64
}

func CrossEntropy(config CrossEntropyConfig) Loss {
	return &CrossEntropyLoss{
		FromLogits:     config.FromLogits,
		LabelSmoothing: config.LabelSmoothing,
	}
}

func (c *CrossEntropyLoss) smooth(t float64, nClasses int) float64 {
	if c.LabelSmoothing > 0 {
		return t*(1-c.LabelSmoothing) + c.LabelSmoothing/float64(nClasses)
	}
	return t
}

func (c *CrossEntropyLoss) compute(pred, target *tensor) float64 {
	nClasses := pred.shape[len(pred.shape)-1]
	nSamples := len(pred.data) / nClasses
	sum := 0.0

	if c.FromLogits {
		for i := 0; i < nSamples; i++ {
			row := pred.data[i*nClasses : (i+1)*nClasses]
			lse := logSumExp(row)
			for j, z := range row {
				t := c.smooth(target.data[i*nClasses+j], nClasses)
				sum -= t * (z - lse)
			}
		}
		return sum / float64(nSamples)
	}

	eps := 1e-15
	for i := 0; i < nSamples*nClasses; i++ {
		t := c.smooth(target.data[i], nClasses)
		p := math.Max(pred.data[i], eps)
		sum -= t * math.Log(p)
	}
	return sum / float64(nSamples)
}

func (c *CrossEntropyLoss) gradient(pred, target *tensor, gradOut *tensor) {
	nClasses := pred.shape[len(pred.shape)-1]
	nSamples := len(pred.data) / nClasses
	scale := 1.0 / float64(nSamples)

	if c.FromLogits {
		for i := 0; i < nSamples; i++ {
			row := pred.data[i*nClasses : (i+1)*nClasses]
			lse := logSumExp(row)
			for j, z := range row {
				idx := i*nClasses + j
				t := c.smooth(target.data[idx], nClasses)
				gradOut.data[idx] = scale * (math.Exp(z-lse) - t)
			}
		}
		return
	}

	for i := 0; i < nSamples*nClasses; i++ {
		t := c.smooth(target.data[i], nClasses)
		gradOut.data[i] = scale * (pred.data[i] - t)
	}
}

func (c *CrossEntropyLoss) name() string { return "cross_entropy" }

// logSumExp computes log(sum(exp(x))) without overflow.
func logSumExp(x []float64) float64 {
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	sum := 0.0
	for _, v := range x {
		sum += math.Exp(v - maxV)
	}
	return maxV + math.Log(sum)
}
