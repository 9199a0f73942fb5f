// README: Pricing service computes fare estimates from the rate table.
package pricing

import (
	"context"
	"math"

	"fleet/internal/types"
)

// RateSource yields the rate card for a vehicle class. Satisfied by Store.
type RateSource interface {
	GetRate(ctx context.Context, vehicleClass string) (Rate, error)
}

type Service struct {
	rates RateSource
}

func NewService(rates RateSource) *Service {
	return &Service{rates: rates}
}

// Estimate quotes base fare plus per-km distance charge, in minor units.
func (s *Service) Estimate(ctx context.Context, distanceKm float64, vehicleClass string) (types.Money, error) {
	rate, err := s.rates.GetRate(ctx, vehicleClass)
	if err != nil {
		return types.Money{}, err
	}
	amount := rate.BaseFare + int64(math.Round(distanceKm*float64(rate.PerKm)))
	return types.Money{Amount: amount, Currency: rate.Currency}, nil
}
