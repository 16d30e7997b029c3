package trainer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/YetAnotherDeepLab/digitflow/dataset"
	"github.com/YetAnotherDeepLab/digitflow/nn"
)

// Evaluate runs a forward-only pass over the loader and reports accuracy
// as a percentage in [0, 100]. No parameters change; calling it twice on
// the same network gives the same result.
func Evaluate(ctx context.Context, net *nn.Network, loader *dataset.Loader, out io.Writer) (float64, error) {
	if out == nil {
		out = os.Stdout
	}
	metric := nn.Accuracy()
	for batch := range loader.Epoch(ctx) {
		pred, err := net.Predict(batch.Images)
		if err != nil {
			return 0, err
		}
		metric.Update(pred, batch.Labels)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	correct, total := metric.Counts()
	if total == 0 {
		return 0, fmt.Errorf("trainer: evaluation saw no samples")
	}
	pct := 100 * float64(correct) / float64(total)
	fmt.Fprintf(out, "Accuracy of the network on the %d test images: %d %%\n", total, int(pct))
	return pct, nil
}
