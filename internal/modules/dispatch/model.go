// README: Collaborator contracts, event payloads, and the sweep report.
package dispatch

import (
	"context"
	"time"

	"fleet/internal/modules/driver"
	"fleet/internal/modules/geo"
	"fleet/internal/modules/order"
	"fleet/internal/types"
)

// GeoIndex finds available drivers around a point, nearest first.
type GeoIndex interface {
	FindAvailable(ctx context.Context, origin types.Point, radiusKm float64, limit int) ([]geo.Candidate, error)
}

// OrderRepo is the slice of the order store the engine needs.
type OrderRepo interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	UpdateAssignment(ctx context.Context, o *order.Order) error
	AppendAttempt(ctx context.Context, orderID types.ID, a *order.Attempt) error
	ResolveAttempt(ctx context.Context, orderID, driverID types.ID, resp order.AttemptResponse, at time.Time) (bool, error)
	LockExpiredBefore(ctx context.Context, t time.Time) ([]types.ID, error)
}

// DriverDirectory resolves candidates and flips availability on acceptance.
type DriverDirectory interface {
	Get(ctx context.Context, id types.ID) (*driver.Driver, error)
	MarkBusy(ctx context.Context, id types.ID) error
}

// Clock is injectable time, so expiry behaviour is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Response is a driver's answer to an outstanding offer.
type Response string

const (
	ResponseAccept  Response = "accept"
	ResponseDecline Response = "decline"
)

// Event names published through the notification sink.
const (
	EventOrderOffer     = "order_offer"
	EventOfferConfirmed = "offer_confirmed"
	EventDriverAssigned = "driver_assigned"
	EventOrderFailed    = "order_failed"
)

// OfferPayload is what the driver's channel receives when an offer is placed.
type OfferPayload struct {
	OrderID            string    `json:"order_id"`
	PickupAddress      string    `json:"pickup_address"`
	PickupLat          float64   `json:"pickup_lat"`
	PickupLng          float64   `json:"pickup_lng"`
	DropoffAddress     string    `json:"dropoff_address"`
	DropoffLat         float64   `json:"dropoff_lat"`
	DropoffLng         float64   `json:"dropoff_lng"`
	FareAmount         int64     `json:"fare_amount"`
	FareCurrency       string    `json:"fare_currency"`
	DistanceToPickupKm float64   `json:"distance_to_pickup_km"`
	EtaMinutes         int       `json:"eta_minutes"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// AssignedPayload notifies the customer that a driver took the order.
type AssignedPayload struct {
	OrderID    string `json:"order_id"`
	DriverID   string `json:"driver_id"`
	DriverName string `json:"driver_name"`
	EtaMinutes int    `json:"eta_minutes"`
}

// FailedPayload notifies the customer that assignment gave up.
type FailedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// SweepReport summarises one reaper pass for observability.
type SweepReport struct {
	Processed  int
	Reassigned int
	Failed     int
}
