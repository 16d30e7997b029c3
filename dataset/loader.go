// Package dataset turns an indexable sample source into a stream of
// mini-batches, with optional per-epoch shuffling and prefetch workers.
package dataset

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

// Source is an indexable collection of (image, label) pairs.
type Source interface {
	Len() int
	At(i int) ([]float64, int)
}

// Batch is one mini-batch of flattened images and their class labels.
type Batch struct {
	Images [][]float64
	Labels []int
}

// LoaderConfig configures batching behavior.
type LoaderConfig struct {
	BatchSize  int
	Shuffle    bool // reshuffle sample order every epoch
	NumWorkers int  // prefetch goroutines; 0 means synchronous assembly
	Seed       int64
}

// Loader produces a lazy, finite, restartable per-epoch sequence of
// mini-batches. With Shuffle the order changes every epoch but the whole
// sequence of epochs is deterministic under a fixed seed; without Shuffle
// the order is the source order, every epoch.
type Loader struct {
	src Source
	cfg LoaderConfig
	rng *rand.Rand
}

// NewLoader validates the configuration and wraps the source.
func NewLoader(src Source, cfg LoaderConfig) (*Loader, error) {
	if src == nil {
		return nil, errors.New("dataset: source is nil")
	}
	if src.Len() == 0 {
		return nil, errors.New("dataset: source is empty")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("dataset: batch size must be > 0")
	}
	if cfg.NumWorkers < 0 {
		return nil, errors.New("dataset: num workers must be >= 0")
	}
	return &Loader{
		src: src,
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Len returns the number of samples in the underlying source.
func (l *Loader) Len() int {
	return l.src.Len()
}

// NumBatches returns the number of mini-batches per epoch. The final batch
// may be smaller than BatchSize.
func (l *Loader) NumBatches() int {
	return (l.src.Len() + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Epoch starts one pass over the source and returns the batch stream. The
// channel is closed after the last batch, or early when ctx is canceled.
func (l *Loader) Epoch(ctx context.Context) <-chan Batch {
	order := l.epochOrder()
	if l.cfg.NumWorkers == 0 {
		return l.serialEpoch(ctx, order)
	}
	return l.parallelEpoch(ctx, order)
}

func (l *Loader) epochOrder() []int {
	order := make([]int, l.src.Len())
	for i := range order {
		order[i] = i
	}
	if l.cfg.Shuffle {
		l.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

func (l *Loader) assemble(order []int, batchIdx int) Batch {
	start := batchIdx * l.cfg.BatchSize
	end := start + l.cfg.BatchSize
	if end > len(order) {
		end = len(order)
	}
	batch := Batch{
		Images: make([][]float64, 0, end-start),
		Labels: make([]int, 0, end-start),
	}
	for _, idx := range order[start:end] {
		img, label := l.src.At(idx)
		batch.Images = append(batch.Images, img)
		batch.Labels = append(batch.Labels, label)
	}
	return batch
}

func (l *Loader) serialEpoch(ctx context.Context, order []int) <-chan Batch {
	out := make(chan Batch)
	numBatches := (len(order) + l.cfg.BatchSize - 1) / l.cfg.BatchSize
	go func() {
		defer close(out)
		for b := 0; b < numBatches; b++ {
			select {
			case <-ctx.Done():
				return
			case out <- l.assemble(order, b):
			}
		}
	}()
	return out
}

type batchResult struct {
	id    int
	batch Batch
}

// parallelEpoch fans batch assembly out to workers and merges the results
// back into batch-index order, so the stream stays deterministic no matter
// how many workers run.
func (l *Loader) parallelEpoch(ctx context.Context, order []int) <-chan Batch {
	numBatches := (len(order) + l.cfg.BatchSize - 1) / l.cfg.BatchSize
	workers := l.cfg.NumWorkers

	jobs := make(chan int, workers)
	results := make(chan batchResult, workers)
	out := make(chan Batch, workers)

	go func() {
		defer close(jobs)
		for b := 0; b < numBatches; b++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- b:
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				select {
				case <-ctx.Done():
					return
				case results <- batchResult{id: b, batch: l.assemble(order, b)}:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(out)
		pending := make(map[int]Batch)
		next := 0
		for res := range results {
			pending[res.id] = res.batch
			for {
				batch, ok := pending[next]
				if !ok {
					break
				}
				select {
				case <-ctx.Done():
					return
				case out <- batch:
				}
				delete(pending, next)
				next++
			}
		}
	}()

	return out
}
