// README: Driver availability index backed by Redis GEO.
package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fleet/internal/types"
)

// availableGeoKey is the sorted set holding every currently available driver.
// Membership is the source of truth for availability at query time; the driver
// service adds and removes members as availability flips.
const availableGeoKey = "geo:drivers:available"

var ErrInvalidArgument = errors.New("invalid argument")

// Candidate is one driver eligible for an offer, with its straight-line
// distance from the queried origin.
type Candidate struct {
	DriverID   types.ID
	DistanceKm float64
}

type Index struct {
	redis *redis.Client
}

func NewIndex(redis *redis.Client) *Index {
	return &Index{redis: redis}
}

// Add registers or refreshes a driver's position in the availability set.
func (x *Index) Add(ctx context.Context, driverID types.ID, pos types.Point) error {
	if err := validatePoint(pos); err != nil {
		return err
	}
	return x.redis.GeoAdd(ctx, availableGeoKey, &redis.GeoLocation{
		Name:      string(driverID),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

// Remove drops a driver from the availability set.
func (x *Index) Remove(ctx context.Context, driverID types.ID) error {
	return x.redis.ZRem(ctx, availableGeoKey, string(driverID)).Err()
}

// FindAvailable returns up to limit available drivers within radiusKm of
// origin, nearest first. Ties at equal distance break by driver id so
// repeated queries are deterministic. Every call takes a fresh snapshot.
func (x *Index) FindAvailable(ctx context.Context, origin types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidArgument, radiusKm)
	}
	if err := validatePoint(origin); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	results, err := x.redis.GeoSearchLocation(ctx, availableGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Lng,
			Latitude:   origin.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{DriverID: types.ID(r.Name), DistanceKm: roundKm(r.Dist)}
	}
	sortCandidates(out)
	return out, nil
}

// sortCandidates re-sorts by (distance, driver id). Redis already returns
// ascending distance; the pass only settles equal-distance ties.
func sortCandidates(cs []Candidate) {
	for i := 1; i < len(cs); i++ {
		key := cs[i]
		j := i - 1
		for j >= 0 && less(key, cs[j]) {
			cs[j+1] = cs[j]
			j--
		}
		cs[j+1] = key
	}
}

func less(a, b Candidate) bool {
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	return a.DriverID < b.DriverID
}

func validatePoint(p types.Point) error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidArgument, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidArgument, p.Lng)
	}
	return nil
}
