package dataset

import (
	"context"
	"testing"
)

// fakeSource yields sample i as a single-element image [i] with label i%10.
type fakeSource struct {
	n int
}

func (s fakeSource) Len() int { return s.n }

func (s fakeSource) At(i int) ([]float64, int) {
	return []float64{float64(i)}, i % 10
}

func collect(t *testing.T, l *Loader) []Batch {
	t.Helper()
	var batches []Batch
	for b := range l.Epoch(context.Background()) {
		batches = append(batches, b)
	}
	return batches
}

func flatten(batches []Batch) []int {
	var order []int
	for _, b := range batches {
		for _, img := range b.Images {
			order = append(order, int(img[0]))
		}
	}
	return order
}

func TestNewLoaderValidation(t *testing.T) {
	if _, err := NewLoader(nil, LoaderConfig{BatchSize: 4}); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewLoader(fakeSource{n: 0}, LoaderConfig{BatchSize: 4}); err == nil {
		t.Fatal("expected error for empty source")
	}
	if _, err := NewLoader(fakeSource{n: 10}, LoaderConfig{BatchSize: 0}); err == nil {
		t.Fatal("expected error for zero batch size")
	}
	if _, err := NewLoader(fakeSource{n: 10}, LoaderConfig{BatchSize: 4, NumWorkers: -1}); err == nil {
		t.Fatal("expected error for negative workers")
	}
}

func TestNumBatchesPartialLast(t *testing.T) {
	l, err := NewLoader(fakeSource{n: 10}, LoaderConfig{BatchSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got := l.NumBatches(); got != 3 {
		t.Fatalf("NumBatches = %d, want 3", got)
	}
	batches := collect(t, l)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if len(batches[2].Images) != 2 {
		t.Fatalf("last batch has %d samples, want 2", len(batches[2].Images))
	}
}

func TestSequentialOrderWithoutShuffle(t *testing.T) {
	l, err := NewLoader(fakeSource{n: 9}, LoaderConfig{BatchSize: 3})
	if err != nil {
		t.Fatal(err)
	}
	order := flatten(collect(t, l))
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
	for i, b := range collect(t, l) {
		for j, label := range b.Labels {
			want := (i*3 + j) % 10
			if label != want {
				t.Fatalf("batch %d label %d = %d, want %d", i, j, label, want)
			}
		}
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	mk := func(seed int64) *Loader {
		l, err := NewLoader(fakeSource{n: 64}, LoaderConfig{BatchSize: 8, Shuffle: true, Seed: seed})
		if err != nil {
			t.Fatal(err)
		}
		return l
	}
	a := flatten(collect(t, mk(7)))
	b := flatten(collect(t, mk(7)))
	if len(a) != len(b) {
		t.Fatalf("epoch lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestShuffleChangesAcrossEpochs(t *testing.T) {
	l, err := NewLoader(fakeSource{n: 128}, LoaderConfig{BatchSize: 16, Shuffle: true, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	first := flatten(collect(t, l))
	second := flatten(collect(t, l))
	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("consecutive epochs produced identical shuffled orders")
	}
	seen := make(map[int]bool, len(second))
	for _, v := range second {
		seen[v] = true
	}
	if len(seen) != 128 {
		t.Fatalf("second epoch covered %d distinct samples, want 128", len(seen))
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	serial, err := NewLoader(fakeSource{n: 100}, LoaderConfig{BatchSize: 7, Shuffle: true, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := NewLoader(fakeSource{n: 100}, LoaderConfig{BatchSize: 7, Shuffle: true, Seed: 3, NumWorkers: 4})
	if err != nil {
		t.Fatal(err)
	}
	a := flatten(collect(t, serial))
	b := flatten(collect(t, parallel))
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("parallel order diverges at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestEpochHonorsCancel(t *testing.T) {
	l, err := NewLoader(fakeSource{n: 1000}, LoaderConfig{BatchSize: 1, NumWorkers: 2})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := l.Epoch(ctx)
	<-ch
	cancel()
	count := 0
	for range ch {
		count++
	}
	if count >= 999 {
		t.Fatalf("stream did not stop after cancel, drained %d batches", count)
	}
}
