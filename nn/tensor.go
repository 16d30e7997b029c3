package nn

import "math/rand"

// tensor is the internal data structure; it is never exposed to callers.
// Data is stored flat in row-major order.
type tensor struct {
	data  []float64
	shape []int
}

func newTensor(shape ...int) *tensor {
	size := 1
	for _, s := range shape {
		if s <= 0 {
			s = 1
		}
		size *= s
	}
	return &tensor{
		data:  make([]float64, size),
		shape: shape,
	}
}

func (t *tensor) size() int {
	return len(t.data)
}

func (t *tensor) fill(value float64) {
	for i := range t.data {
		t.data[i] = value
	}
}

func (t *tensor) zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

func (t *tensor) fillRandNorm(mean, std float64, rng *rand.Rand) {
	for i := range t.data {
		t.data[i] = rng.NormFloat64()*std + mean
	}
}

func (t *tensor) fillRandUniform(low, high float64, rng *rand.Rand) {
	for i := range t.data {
		t.data[i] = rng.Float64()*(high-low) + low
	}
}

func (t *tensor) clone() *tensor {
	nt := newTensor(t.shape...)
	copy(nt.data, t.data)
	return nt
}

// matmul computes out = a @ b. No bounds checking.
func matmul(a, b, out *tensor) {
	m := a.shape[0]
	k := a.shape[1]
	n := b.shape[1]

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for l := 0; l < k; l++ {
				sum += a.data[i*k+l] * b.data[l*n+j]
			}
			out.data[i*n+j] = sum
		}
	}
}

// matmulTransAAdd computes out += a^T @ b. Accumulation is deliberate:
// gradient buffers are only cleared by an explicit ZeroGrad.
func matmulTransAAdd(a, b, out *tensor) {
	m := a.shape[1]
	k := a.shape[0]
	n := b.shape[1]

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for l := 0; l < k; l++ {
				sum += a.data[l*m+i] * b.data[l*n+j]
			}
			out.data[i*n+j] += sum
		}
	}
}

// matmulTransB computes out = a @ b^T.
func matmulTransB(a, b, out *tensor) {
	m := a.shape[0]
	k := a.shape[1]
	n := b.shape[0]

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for l := 0; l < k; l++ {
				sum += a.data[i*k+l] * b.data[j*k+l]
			}
			out.data[i*n+j] = sum
		}
	}
}

// addVec broadcasts b over the rows of a.
func addVec(a *tensor, b *tensor) {
	for i := range a.data {
		a.data[i] += b.data[i%len(b.data)]
	}
}

func mulScalar(a *tensor, s float64) {
	for i := range a.data {
		a.data[i] *= s
	}
}

func elemMul(a, b, out *tensor) {
	for i := range a.data {
		out.data[i] = a.data[i] * b.data[i]
	}
}

// sumAxis0Add accumulates column sums of a into out.
func sumAxis0Add(a *tensor, out *tensor) {
	rows := a.shape[0]
	cols := a.shape[1]
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += a.data[i*cols+j]
		}
		out.data[j] += sum
	}
}

func maxVal(a *tensor) float64 {
	if len(a.data) == 0 {
		return 0
	}
	m := a.data[0]
	for _, v := range a.data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
