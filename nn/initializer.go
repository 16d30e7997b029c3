package nn

import (
	"math"
	"math/rand"
)

// Initializer sets up initial weights for layers
type Initializer interface {
	initialize(t *tensor, fanIn, fanOut int, rng *rand.Rand)
	name() string
}

// HeNormalInit - He/Kaiming normal initialization
type HeNormalInit struct {
	Gain float64
}

func HeNormal(gain float64) Initializer {
	return &HeNormalInit{Gain: gain}
}

func (h *HeNormalInit) initialize(t *tensor, fanIn, fanOut int, rng *rand.Rand) {
	std := h.Gain * math.Sqrt(2.0/float64(fanIn))
	t.fillRandNorm(0, std, rng)
}

func (h *HeNormalInit) name() string { return "he_normal" }

// XavierNormalInit - Xavier/Glorot normal initialization
type XavierNormalInit struct {
	Gain float64
}

func XavierNormal(gain float64) Initializer {
	return &XavierNormalInit{Gain: gain}
}

func (x *XavierNormalInit) initialize(t *tensor, fanIn, fanOut int, rng *rand.Rand) {
	std := x.Gain * math.Sqrt(2.0/float64(fanIn+fanOut))
	t.fillRandNorm(0, std, rng)
}

func (x *XavierNormalInit) name() string { return "xavier_normal" }

// XavierUniformInit - Xavier/Glorot uniform initialization
type XavierUniformInit struct {
	Gain float64
}

func XavierUniform(gain float64) Initializer {
	return &XavierUniformInit{Gain: gain}
}

func (x *XavierUniformInit) initialize(t *tensor, fanIn, fanOut int, rng *rand.Rand) {
	limit := x.Gain * math.Sqrt(6.0/float64(fanIn+fanOut))
	t.fillRandUniform(-limit, limit, rng)
}

func (x *XavierUniformInit) name() string { return "xavier_uniform" }

// ZerosInit - initialize with zeros
type ZerosInit struct{}

func Zeros() Initializer { return &ZerosInit{} }

func (z *ZerosInit) initialize(t *tensor, fanIn, fanOut int, rng *rand.Rand) {
	t.fill(0)
}

func (z *ZerosInit) name() string { return "zeros" }

// RandomNormalInit - plain random normal
type RandomNormalInit struct {
	Mean   float64
	StdDev float64
}

func RandomNormal(mean, stddev float64) Initializer {
	return &RandomNormalInit{Mean: mean, StdDev: stddev}
}

func (r *RandomNormalInit) initialize(t *tensor, fanIn, fanOut int, rng *rand.Rand) {
	t.fillRandNorm(r.Mean, r.StdDev, rng)
}

func (r *RandomNormalInit) name() string { return "random_normal" }
