// Package device reports the compute capabilities of the host CPU.
package device

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Device describes the processor the run executes on.
type Device struct {
	Brand        string
	LogicalCores int
	AVX2         bool
	AVX512       bool
}

// Detect inspects the host CPU.
func Detect() Device {
	cores := cpuid.CPU.LogicalCores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	return Device{
		Brand:        cpuid.CPU.BrandName,
		LogicalCores: cores,
		AVX2:         cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:       cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
}

func (d Device) String() string {
	simd := "scalar"
	switch {
	case d.AVX512:
		simd = "avx512"
	case d.AVX2:
		simd = "avx2"
	}
	return fmt.Sprintf("%s (%d cores, %s)", d.Brand, d.LogicalCores, simd)
}

// Workers clamps a requested worker count to the host. A request of 0 means
// one worker per logical core.
func (d Device) Workers(requested int) int {
	if requested <= 0 {
		return d.LogicalCores
	}
	if requested > d.LogicalCores {
		return d.LogicalCores
	}
	return requested
}
