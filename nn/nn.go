// Package nn is a small neural network library for Go.
//
// It provides an explicit-configuration API: every hyperparameter must be
// specified, there are no hidden defaults.
//
// Basic usage:
//
//	net, err := nn.NewNetwork(nn.NetworkConfig{Seed: 42}).
//		AddLayer(nn.Conv2D(6, [2]int{5, 5}).
//			WithStride(1, 1).
//			WithPadding("valid").
//			WithActivation(nn.ReLU()).
//			WithInitializer(nn.HeNormal(1.0)).
//			WithBiasInitializer(nn.Zeros()).
//			WithBias(true).
//			Build()).
//		AddLayer(nn.MaxPool2D([2]int{2, 2}).Build()).
//		AddLayer(nn.Flatten().Build()).
//		AddLayer(nn.Dense(10).
//			WithActivation(nn.Linear()).
//			WithInitializer(nn.XavierNormal(1.0)).
//			WithBiasInitializer(nn.Zeros()).
//			WithBias(true).
//			Build()).
//		Build([]int{32, 32, 1})
//
//	err = net.Compile(nn.CompileConfig{
//		Optimizer: nn.SGD(nn.SGDConfig{LR: 0.001, Momentum: 0.9}),
//		Loss:      nn.CrossEntropy(nn.CrossEntropyConfig{FromLogits: true}),
//	})
//
// Training is driven one mini-batch at a time:
//
//	net.ZeroGrad()
//	pred, err := net.Forward(images, true)
//	loss, err := net.Loss(targets)
//	err = net.Backward(targets)
//	net.Step()
//
// The four calls must run in that order once per mini-batch. Skipping
// ZeroGrad makes gradients accumulate across batches.
package nn

// Version of the nn library
const Version = "1.0.0"
