// README: Order aggregate, status definitions, and assignment-attempt history.
package order

import (
	"time"

	"fleet/internal/types"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusAccepted      Status = "accepted"
	StatusPickupStarted Status = "pickup_started"
	StatusPickedUp      Status = "picked_up"
	StatusInTransit     Status = "in_transit"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
	StatusFailed        Status = "failed"
)

// AllowedTransitions represents the order state flow as code. The dispatch
// engine drives only pending → accepted/failed; the delivery-phase transitions
// belong to the trip lifecycle after assignment.
var AllowedTransitions = map[Status][]Status{
	StatusPending:       {StatusAccepted, StatusCancelled, StatusFailed},
	StatusAccepted:      {StatusPickupStarted, StatusCancelled},
	StatusPickupStarted: {StatusPickedUp, StatusCancelled},
	StatusPickedUp:      {StatusInTransit, StatusCancelled},
	StatusInTransit:     {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type AttemptResponse string

const (
	ResponsePending  AttemptResponse = "pending"
	ResponseAccepted AttemptResponse = "accepted"
	ResponseDeclined AttemptResponse = "declined"
	ResponseTimeout  AttemptResponse = "timeout"
)

// Attempt is one offer of this order to one driver. Records are append-only;
// the only permitted mutation is resolving Response away from pending exactly
// once.
type Attempt struct {
	ID          int64
	DriverID    types.ID
	AttemptedAt time.Time
	Response    AttemptResponse
	RespondedAt *time.Time
}

// Stop is a pickup or dropoff: street address plus coordinates.
type Stop struct {
	Address  string
	Location types.Point
}

// Lock mirrors the LockStore pair on the persisted aggregate so the reaper
// can find expired offers without scanning Redis.
type Lock struct {
	IsLocked  bool
	LockedBy  *types.ID
	ExpiresAt *time.Time
}

type Order struct {
	ID               types.ID
	CustomerID       types.ID
	Status           Status
	VehicleClass     string
	Pickup           Stop
	Dropoff          Stop
	Fare             types.Money
	AssignedDriverID *types.ID
	Lock             Lock
	Attempts         []Attempt
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PendingAttempt returns the unresolved attempt for the given driver, or nil.
func (o *Order) PendingAttempt(driverID types.ID) *Attempt {
	for i := range o.Attempts {
		a := &o.Attempts[i]
		if a.DriverID == driverID && a.Response == ResponsePending {
			return a
		}
	}
	return nil
}

// ResolvedAttempts counts attempts that received a terminal response. This is
// the number the retry cap is measured against.
func (o *Order) ResolvedAttempts() int {
	n := 0
	for i := range o.Attempts {
		if o.Attempts[i].Response != ResponsePending {
			n++
		}
	}
	return n
}

// HasAttemptFor reports whether the driver was ever offered this order.
// Drivers who already declined or timed out are not offered the same order again.
func (o *Order) HasAttemptFor(driverID types.ID) bool {
	for i := range o.Attempts {
		if o.Attempts[i].DriverID == driverID {
			return true
		}
	}
	return false
}

// ClearLock resets the lock fields after an offer resolves or expires.
func (o *Order) ClearLock() {
	o.Lock = Lock{}
}

// SetLock records an outstanding offer's lock on the aggregate.
func (o *Order) SetLock(driverID types.ID, expiresAt time.Time) {
	o.Lock = Lock{IsLocked: true, LockedBy: &driverID, ExpiresAt: &expiresAt}
}
