package geo

import (
	"math"
	"testing"
)

func TestCosLat(t *testing.T) {
	if got := CosLat(0); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("CosLat(0) = %v, want 1.0", got)
	}
	if got := CosLat(60); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CosLat(60) = %v, want 0.5", got)
	}
}

func TestPlanarDistanceMetres_SamePoint(t *testing.T) {
	if got := PlanarDistanceMetres(33.4373, -112.0078, 33.4373, -112.0078, CosLat(33.4373)); got != 0 {
		t.Errorf("distance to self = %v, want 0", got)
	}
}

func TestPlanarDistanceMetres_LatitudeOnly(t *testing.T) {
	// 0.001 degrees of latitude is 110.54 m regardless of longitude scaling.
	got := PlanarDistanceMetres(33.0000, -112.0, 33.0010, -112.0, CosLat(33.0))
	want := 110.54
	if math.Abs(got-want) > 0.01 {
		t.Errorf("latitude-only distance = %v, want %v", got, want)
	}
}

func TestPlanarDistanceMetres_LongitudeScaled(t *testing.T) {
	// At the equator cos(lat)=1, so 0.001 degrees of longitude is 111.32 m.
	got := PlanarDistanceMetres(0, 10.0000, 0, 10.0010, CosLat(0))
	want := 111.32
	if math.Abs(got-want) > 0.01 {
		t.Errorf("equator longitude distance = %v, want %v", got, want)
	}

	// At 60 degrees north the same delta is half as long.
	got = PlanarDistanceMetres(60, 10.0000, 60, 10.0010, CosLat(60))
	want = 55.66
	if math.Abs(got-want) > 0.01 {
		t.Errorf("60N longitude distance = %v, want %v", got, want)
	}
}

func TestPlanarDistanceMetres_Stable(t *testing.T) {
	// Repeated computation with identical inputs must be bit-for-bit stable;
	// cached distances are never recomputed per query.
	cos := CosLat(33.4373)
	first := PlanarDistanceMetres(33.4373, -112.0078, 33.4391, -112.0102, cos)
	for i := 0; i < 100; i++ {
		if got := PlanarDistanceMetres(33.4373, -112.0078, 33.4391, -112.0102, cos); got != first {
			t.Fatalf("distance drifted on iteration %d: %v != %v", i, got, first)
		}
	}
}
