package device

import (
	"strings"
	"testing"
)

func TestDetectReportsCores(t *testing.T) {
	d := Detect()
	if d.LogicalCores <= 0 {
		t.Fatalf("LogicalCores = %d, want > 0", d.LogicalCores)
	}
}

func TestWorkersClamp(t *testing.T) {
	d := Device{LogicalCores: 8}
	cases := []struct {
		requested, want int
	}{
		{0, 8},
		{-3, 8},
		{4, 4},
		{8, 8},
		{100, 8},
	}
	for _, c := range cases {
		if got := d.Workers(c.requested); got != c.want {
			t.Fatalf("Workers(%d) = %d, want %d", c.requested, got, c.want)
		}
	}
}

func TestStringNamesSIMD(t *testing.T) {
	d := Device{Brand: "testcpu", LogicalCores: 4, AVX2: true}
	if s := d.String(); !strings.Contains(s, "avx2") {
		t.Fatalf("String() = %q, want avx2 tier", s)
	}
	d.AVX512 = true
	if s := d.String(); !strings.Contains(s, "avx512") {
		t.Fatalf("String() = %q, want avx512 tier", s)
	}
	d.AVX2, d.AVX512 = false, false
	if s := d.String(); !strings.Contains(s, "scalar") {
		t.Fatalf("String() = %q, want scalar tier", s)
	}
}
