package nn

// Metric accumulates an evaluation statistic over batches
type Metric interface {
	Reset()
	Update(pred [][]float64, labels []int)
	Result() float64
	Name() string
}

// AccuracyMetric - fraction of samples whose arg-max score matches the label
type AccuracyMetric struct {
	correct int
	total   int
}

func Accuracy() *AccuracyMetric {
	return &AccuracyMetric{}
}

func (a *AccuracyMetric) Reset() {
	a.correct = 0
	a.total = 0
}

func (a *AccuracyMetric) Update(pred [][]float64, labels []int) {
	for i, scores := range pred {
		if ArgMax(scores) == labels[i] {
			a.correct++
		}
		a.total++
	}
}

// Result returns accuracy in [0, 1].
func (a *AccuracyMetric) Result() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.correct) / float64(a.total)
}

// Counts returns the raw correct/total tallies.
func (a *AccuracyMetric) Counts() (correct, total int) {
	return a.correct, a.total
}

func (a *AccuracyMetric) Name() string { return "accuracy" }

// ArgMax returns the index of the largest score.
func ArgMax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
