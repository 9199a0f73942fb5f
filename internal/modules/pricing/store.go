// README: Pricing store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownClass = errors.New("unknown vehicle class")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetRate(ctx context.Context, vehicleClass string) (Rate, error) {
	row := s.db.QueryRow(ctx, `
		SELECT vehicle_class, base_fare, per_km, currency
		FROM pricing_rates
		WHERE vehicle_class = $1`, vehicleClass,
	)
	var r Rate
	err := row.Scan(&r.VehicleClass, &r.BaseFare, &r.PerKm, &r.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrUnknownClass
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}
