// README: Driver service keeps the GEO availability index in sync with driver state.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleet/internal/modules/geo"
	"fleet/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type Service struct {
	store *Store
	geo   *geo.Index
	log   *zap.Logger
}

func NewService(store *Store, geoIndex *geo.Index, log *zap.Logger) *Service {
	return &Service{store: store, geo: geoIndex, log: log}
}

type RegisterCommand struct {
	Name         string
	Phone        string
	VehicleClass string
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Driver, error) {
	if cmd.Name == "" || cmd.VehicleClass == "" {
		return nil, ErrBadRequest
	}
	d := &Driver{
		ID:           types.ID(uuid.NewString()),
		Name:         cmd.Name,
		Phone:        cmd.Phone,
		VehicleClass: cmd.VehicleClass,
		UpdatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("driver registered",
		zap.String("driver_id", string(d.ID)),
		zap.String("vehicle_class", d.VehicleClass),
	)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}

// SetAvailability flips the driver on or off duty. Going available also
// places the driver into the GEO index at the given position; going offline
// removes them so they stop appearing as candidates immediately.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, available bool, pos types.Point) error {
	if err := s.store.SetAvailability(ctx, id, available); err != nil {
		return err
	}
	if available {
		if err := s.store.UpdateLocation(ctx, id, pos); err != nil {
			return err
		}
		return s.geo.Add(ctx, id, pos)
	}
	return s.geo.Remove(ctx, id)
}

// UpdateLocation persists a position report and refreshes the GEO index while
// the driver remains available.
func (s *Service) UpdateLocation(ctx context.Context, id types.ID, pos types.Point) error {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateLocation(ctx, id, pos); err != nil {
		return err
	}
	if d.IsAvailable {
		return s.geo.Add(ctx, id, pos)
	}
	return nil
}

// MarkBusy takes a driver out of the available pool the instant they accept
// an order. Called by the dispatch engine.
func (s *Service) MarkBusy(ctx context.Context, id types.ID) error {
	if err := s.store.SetAvailability(ctx, id, false); err != nil {
		return err
	}
	return s.geo.Remove(ctx, id)
}

// Release puts a driver back into the available pool at their last reported
// position, once the trip that occupied them terminates.
func (s *Service) Release(ctx context.Context, id types.ID) error {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetAvailability(ctx, id, true); err != nil {
		return err
	}
	return s.geo.Add(ctx, id, d.Location)
}
