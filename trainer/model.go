// Package trainer runs training and evaluation loops over a digit
// classification network.
package trainer

import (
	"github.com/YetAnotherDeepLab/digitflow/dataset/mnist"
	"github.com/YetAnotherDeepLab/digitflow/nn"
)

// NewDigitNet builds the classic small convolutional net for 32x32
// grayscale digits: two conv+pool stages into three dense layers, with a
// linear score head paired with a from-logits cross entropy loss.
func NewDigitNet(seed int64) (*nn.Network, error) {
	return nn.NewNetwork(nn.NetworkConfig{Seed: seed}).
		AddLayer(nn.Conv2D(6, [2]int{5, 5}).
			WithStride(1, 1).
			WithPadding("valid").
			WithActivation(nn.ReLU()).
			WithInitializer(nn.HeNormal(1.0)).
			WithBiasInitializer(nn.Zeros()).
			WithBias(true).
			Build()).
		AddLayer(nn.MaxPool2D([2]int{2, 2}).Build()).
		AddLayer(nn.Conv2D(16, [2]int{5, 5}).
			WithStride(1, 1).
			WithPadding("valid").
			WithActivation(nn.ReLU()).
			WithInitializer(nn.HeNormal(1.0)).
			WithBiasInitializer(nn.Zeros()).
			WithBias(true).
			Build()).
		AddLayer(nn.MaxPool2D([2]int{2, 2}).Build()).
		AddLayer(nn.Flatten().Build()).
		AddLayer(nn.Dense(120).
			WithActivation(nn.ReLU()).
			WithInitializer(nn.HeNormal(1.0)).
			WithBiasInitializer(nn.Zeros()).
			WithBias(true).
			Build()).
		AddLayer(nn.Dense(84).
			WithActivation(nn.ReLU()).
			WithInitializer(nn.HeNormal(1.0)).
			WithBiasInitializer(nn.Zeros()).
			WithBias(true).
			Build()).
		AddLayer(nn.Dense(mnist.NumClasses).
			WithActivation(nn.Linear()).
			WithInitializer(nn.XavierNormal(1.0)).
			WithBiasInitializer(nn.Zeros()).
			WithBias(true).
			Build()).
		Build([]int{mnist.PaddedSize, mnist.PaddedSize, 1})
}
