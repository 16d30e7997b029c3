package trainer

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/YetAnotherDeepLab/digitflow/dataset/mnist"
	"github.com/YetAnotherDeepLab/digitflow/nn"
)

// Smoke pushes one random batch through a fresh network with a mean
// squared error objective and performs a single optimization step. It
// checks the whole pipeline end to end without touching any data on disk.
func Smoke(seed int64, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	net, err := NewDigitNet(seed)
	if err != nil {
		return err
	}
	err = net.Compile(nn.CompileConfig{
		Optimizer: nn.SGD(nn.SGDConfig{LR: 0.001, Momentum: 0.9}),
		Loss:      nn.MSE(nn.MSEConfig{Reduction: "mean"}),
	})
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	const batch = 4
	images := make([][]float64, batch)
	targets := make([][]float64, batch)
	for i := range images {
		images[i] = make([]float64, mnist.SampleSize)
		for j := range images[i] {
			images[i][j] = rng.NormFloat64()
		}
		targets[i] = make([]float64, mnist.NumClasses)
		for j := range targets[i] {
			targets[i][j] = rng.NormFloat64()
		}
	}

	net.ZeroGrad()
	pred, err := net.Forward(images, true)
	if err != nil {
		return err
	}
	before, err := net.Loss(targets)
	if err != nil {
		return err
	}
	if err := net.Backward(targets); err != nil {
		return err
	}
	if err := net.Step(); err != nil {
		return err
	}

	fmt.Fprintf(out, "smoke: %d params, output %dx%d, loss %.6f\n",
		net.NumParams(), len(pred), len(pred[0]), before)
	return nil
}
