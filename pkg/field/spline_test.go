package field

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestCatmullRomEndpoints(t *testing.T) {
	if got := CatmullRom(0, 1, 2, 3, 0); !approx(got, 1) {
		t.Errorf("CatmullRom at t=0 = %v, want p1", got)
	}
	if got := CatmullRom(0, 1, 2, 3, 1); !approx(got, 2) {
		t.Errorf("CatmullRom at t=1 = %v, want p2", got)
	}
}

func TestCatmullRomArray(t *testing.T) {
	values := []float32{1, 2, 3, 4}

	if got := CatmullRomArray(values, 0); !approx(got, 1) {
		t.Errorf("t=0: got %v, want first value", got)
	}
	if got := CatmullRomArray(values, 1); !approx(got, 4) {
		t.Errorf("t=1: got %v, want last value", got)
	}
	if mid := CatmullRomArray(values, 0.5); mid <= 2 || mid >= 3 {
		t.Errorf("t=0.5: got %v, want value between middle control points", mid)
	}
}

func TestCatmullRomArraySmallInputs(t *testing.T) {
	if got := CatmullRomArray(nil, 0.5); got != 0 {
		t.Errorf("empty array: got %v, want 0", got)
	}
	if got := CatmullRomArray([]float32{7}, 0.3); got != 7 {
		t.Errorf("single value: got %v, want 7", got)
	}
	// Two values degrade to linear interpolation.
	if got := CatmullRomArray([]float32{2, 4}, 0.5); !approx(got, 3) {
		t.Errorf("two values at t=0.5: got %v, want 3", got)
	}
}

func TestCatmullRomClosedWraps(t *testing.T) {
	values := []float32{1, 2, 3, 2}

	v0 := CatmullRomClosed(values, 0)
	vFull := CatmullRomClosed(values, 2*math32.Pi)
	if math32.Abs(v0-vFull) > 1e-4 {
		t.Errorf("closed spline does not wrap: f(0)=%v f(2pi)=%v", v0, vFull)
	}

	// Control points are hit exactly at their angles.
	step := 2 * math32.Pi / 4
	for i, want := range values {
		if got := CatmullRomClosed(values, float32(i)*step); !approx(got, want) {
			t.Errorf("control point %d: got %v, want %v", i, got, want)
		}
	}
}

func TestCatmullRomClosedNegativeAngle(t *testing.T) {
	values := []float32{1, 2, 3, 2}
	a := CatmullRomClosed(values, -math32.Pi/3)
	b := CatmullRomClosed(values, 2*math32.Pi-math32.Pi/3)
	if !approx(a, b) {
		t.Errorf("negative angle did not normalize: %v != %v", a, b)
	}
}
