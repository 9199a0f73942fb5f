package geo

import (
	"context"
	"errors"
	"testing"

	"fleet/internal/types"
)

// Validation paths reject bad input before any Redis call, so a nil client
// is safe here; index behaviour against a live Redis is covered by the
// integration suite.

func TestFindAvailable_RejectsInvalidInput(t *testing.T) {
	x := NewIndex(nil)
	ctx := context.Background()
	origin := types.Point{Lat: 12.97, Lng: 77.59}

	if _, err := x.FindAvailable(ctx, origin, 0, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero radius: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := x.FindAvailable(ctx, origin, -1, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative radius: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := x.FindAvailable(ctx, types.Point{Lat: 91, Lng: 0}, 5, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad latitude: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := x.FindAvailable(ctx, types.Point{Lat: 0, Lng: -181}, 5, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad longitude: err = %v, want ErrInvalidArgument", err)
	}
}

func TestFindAvailable_NonPositiveLimit(t *testing.T) {
	x := NewIndex(nil)
	got, err := x.FindAvailable(context.Background(), types.Point{Lat: 12.97, Lng: 77.59}, 5, 0)
	if err != nil || got != nil {
		t.Fatalf("limit 0: got %v, %v, want nil, nil", got, err)
	}
}

func TestAdd_RejectsInvalidPoint(t *testing.T) {
	x := NewIndex(nil)
	if err := x.Add(context.Background(), "d1", types.Point{Lat: -90.5, Lng: 0}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSortCandidates_TieBreaksByDriverID(t *testing.T) {
	cs := []Candidate{
		{DriverID: "d3", DistanceKm: 1.5},
		{DriverID: "d1", DistanceKm: 1.5},
		{DriverID: "d2", DistanceKm: 0.8},
	}
	sortCandidates(cs)

	want := []types.ID{"d2", "d1", "d3"}
	for i, id := range want {
		if cs[i].DriverID != id {
			t.Fatalf("position %d = %s, want %s (got %+v)", i, cs[i].DriverID, id, cs)
		}
	}
}
