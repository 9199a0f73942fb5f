// README: Order intake and trip-lifecycle transitions; assignment itself lives in the dispatch module.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleet/internal/modules/geo"
	"fleet/internal/types"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("order state conflict")
	ErrBadRequest   = errors.New("bad request")
)

// FareEstimator quotes a fare for the trip distance. Satisfied by the pricing
// service.
type FareEstimator interface {
	Estimate(ctx context.Context, distanceKm float64, vehicleClass string) (types.Money, error)
}

// Geocoder resolves a street address to coordinates when the caller did not
// supply any. Optional; without one, coordinates are required on both stops.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (types.Point, error)
}

// DriverReleaser returns a driver to the available pool when the trip that
// occupied them terminates. Satisfied by the driver service.
type DriverReleaser interface {
	Release(ctx context.Context, driverID types.ID) error
}

type Service struct {
	store    *Store
	pricing  FareEstimator
	geocoder Geocoder
	drivers  DriverReleaser
	log      *zap.Logger
}

func NewService(store *Store, pricing FareEstimator, geocoder Geocoder, drivers DriverReleaser, log *zap.Logger) *Service {
	return &Service{store: store, pricing: pricing, geocoder: geocoder, drivers: drivers, log: log}
}

type CreateCommand struct {
	CustomerID   types.ID
	Pickup       Stop
	Dropoff      Stop
	VehicleClass string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" || cmd.VehicleClass == "" {
		return nil, ErrBadRequest
	}

	pickup, err := s.resolveStop(ctx, cmd.Pickup)
	if err != nil {
		return nil, err
	}
	dropoff, err := s.resolveStop(ctx, cmd.Dropoff)
	if err != nil {
		return nil, err
	}

	fare := types.Money{}
	if s.pricing != nil {
		tripKm := geo.DistanceKm(pickup.Location, dropoff.Location)
		if m, err := s.pricing.Estimate(ctx, tripKm, cmd.VehicleClass); err == nil {
			fare = m
		} else {
			s.log.Warn("fare estimate failed", zap.Error(err))
		}
	}

	now := time.Now()
	o := &Order{
		ID:           types.ID(uuid.NewString()),
		CustomerID:   cmd.CustomerID,
		Status:       StatusPending,
		VehicleClass: cmd.VehicleClass,
		Pickup:       pickup,
		Dropoff:      dropoff,
		Fare:         fare,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", string(o.ID)),
		zap.String("customer_id", string(o.CustomerID)),
		zap.String("vehicle_class", o.VehicleClass),
	)
	return o, nil
}

// resolveStop fills in missing coordinates from the street address. A stop
// with neither coordinates nor a resolvable address is a bad request.
func (s *Service) resolveStop(ctx context.Context, stop Stop) (Stop, error) {
	if stop.Location.Lat != 0 || stop.Location.Lng != 0 {
		return stop, nil
	}
	if stop.Address == "" || s.geocoder == nil {
		return Stop{}, ErrBadRequest
	}
	p, err := s.geocoder.Resolve(ctx, stop.Address)
	if err != nil {
		return Stop{}, err
	}
	stop.Location = p
	return stop, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// Cancel takes the order out of play. An outstanding offer's locks are not
// touched here; the dispatch engine detects the status change and releases
// them as a no-op when the driver's response or the reaper arrives.
func (s *Service) Cancel(ctx context.Context, id types.ID) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, id, o.Status, StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	if o.AssignedDriverID != nil {
		s.releaseDriver(ctx, *o.AssignedDriverID)
	}
	s.log.Info("order cancelled", zap.String("order_id", string(id)))
	return nil
}

// StartPickup, MarkPickedUp, StartTransit, and MarkDelivered drive the trip
// lifecycle after assignment. All use compare-and-swap transitions.

func (s *Service) StartPickup(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusAccepted, StatusPickupStarted)
}

func (s *Service) MarkPickedUp(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusPickupStarted, StatusPickedUp)
}

func (s *Service) StartTransit(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusPickedUp, StatusInTransit)
}

func (s *Service) MarkDelivered(ctx context.Context, id types.ID) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, id, StatusInTransit, StatusDelivered); err != nil {
		return err
	}
	if o.AssignedDriverID != nil {
		s.releaseDriver(ctx, *o.AssignedDriverID)
	}
	return nil
}

func (s *Service) transition(ctx context.Context, id types.ID, from, to Status) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != from || !CanTransition(from, to) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *Service) releaseDriver(ctx context.Context, driverID types.ID) {
	if s.drivers == nil {
		return
	}
	if err := s.drivers.Release(ctx, driverID); err != nil {
		s.log.Warn("driver release failed",
			zap.String("driver_id", string(driverID)), zap.Error(err))
	}
}
