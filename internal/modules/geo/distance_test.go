package geo

import (
	"math"
	"testing"

	"fleet/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 12.9716, Lng: 77.5946},
			b:         types.Point{Lat: 12.9716, Lng: 77.5946},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "MG Road to Bangalore airport (~32km)",
			a:         types.Point{Lat: 12.9758, Lng: 77.6045},
			b:         types.Point{Lat: 13.1986, Lng: 77.7066},
			wantKm:    27.2,
			tolerance: 2,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
		{
			name:      "across the antimeridian",
			a:         types.Point{Lat: 0, Lng: 179.5},
			b:         types.Point{Lat: 0, Lng: -179.5},
			wantKm:    111.19,
			tolerance: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 25.0, Lng: 121.0}
	b := types.Point{Lat: 26.0, Lng: 122.0}
	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); d1 != d2 {
		t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceKm_RoundedToTwoDecimals(t *testing.T) {
	a := types.Point{Lat: 12.9716, Lng: 77.5946}
	b := types.Point{Lat: 12.9352, Lng: 77.6245}
	got := DistanceKm(a, b)
	if got != math.Round(got*100)/100 {
		t.Errorf("DistanceKm() = %v, want two-decimal rounding", got)
	}
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		name         string
		distanceKm   float64
		vehicleClass string
		want         int
	}{
		{"bike 5km", 5, "bike", 14},
		{"car 5km", 5, "car", 12},
		{"auto 5km", 5, "auto", 18},
		{"unknown class falls back to car", 5, "rickshaw", 12},
		{"zero distance", 0, "bike", 0},
		{"bike 10km", 10, "bike", 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateMinutes(tt.distanceKm, tt.vehicleClass); got != tt.want {
				t.Errorf("EstimateMinutes(%v, %q) = %d, want %d", tt.distanceKm, tt.vehicleClass, got, tt.want)
			}
		})
	}
}
