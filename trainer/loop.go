package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/YetAnotherDeepLab/digitflow/dataset"
	"github.com/YetAnotherDeepLab/digitflow/dataset/mnist"
	"github.com/YetAnotherDeepLab/digitflow/nn"
)

// RunConfig holds the optimization settings for one training run.
type RunConfig struct {
	Epochs        int
	LR            float64
	Momentum      float64
	LogEvery      int       // batches between loss log lines
	CheckpointDir string    // empty disables checkpointing
	Out           io.Writer // nil means os.Stdout
}

// RunStats summarizes a finished run.
type RunStats struct {
	RunID          string
	EpochLoss      []float64 // mean loss per epoch
	Batches        int       // total batches processed
	CheckpointPath string    // empty when checkpointing is disabled
}

// Run trains the network over the loader for the configured number of
// epochs. The network is compiled here; each batch goes through the full
// zero-grad, forward, loss, backward, step sequence.
func Run(ctx context.Context, net *nn.Network, loader *dataset.Loader, cfg RunConfig) (*RunStats, error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("trainer: epochs must be > 0, got %d", cfg.Epochs)
	}
	if cfg.LogEvery <= 0 {
		return nil, fmt.Errorf("trainer: log every must be > 0, got %d", cfg.LogEvery)
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	err := net.Compile(nn.CompileConfig{
		Optimizer: nn.SGD(nn.SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}),
		Loss:      nn.CrossEntropy(nn.CrossEntropyConfig{FromLogits: true}),
	})
	if err != nil {
		return nil, err
	}

	stats := &RunStats{RunID: uuid.NewString()}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var epochLoss, runningLoss float64
		i := 0
		for batch := range loader.Epoch(ctx) {
			targets := nn.OneHot(batch.Labels, mnist.NumClasses)

			net.ZeroGrad()
			if _, err := net.Forward(batch.Images, true); err != nil {
				return nil, err
			}
			loss, err := net.Loss(targets)
			if err != nil {
				return nil, err
			}
			if err := net.Backward(targets); err != nil {
				return nil, err
			}
			if err := net.Step(); err != nil {
				return nil, err
			}

			epochLoss += loss
			runningLoss += loss
			i++
			stats.Batches++
			if i%cfg.LogEvery == 0 {
				fmt.Fprintf(out, "[%d, %5d] loss: %.3f\n", epoch+1, i, runningLoss/float64(cfg.LogEvery))
				runningLoss = 0
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i == 0 {
			return nil, fmt.Errorf("trainer: epoch %d produced no batches", epoch+1)
		}
		stats.EpochLoss = append(stats.EpochLoss, epochLoss/float64(i))
	}

	fmt.Fprintln(out, "Finished Training")

	if cfg.CheckpointDir != "" {
		path := filepath.Join(cfg.CheckpointDir, "digitnet-"+stats.RunID+".json")
		if err := net.Save(path); err != nil {
			return nil, err
		}
		stats.CheckpointPath = path
	}
	return stats, nil
}
