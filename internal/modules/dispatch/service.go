// README: Assignment engine: candidate discovery, paired locking, sequential offers, response handling, lock reaping.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleet/internal/config"
	"fleet/internal/modules/geo"
	"fleet/internal/modules/order"
	"fleet/internal/notify"
	"fleet/internal/types"
)

// retryAssignTimeout bounds a scheduled re-dispatch that runs outside any
// request context.
const retryAssignTimeout = 30 * time.Second

// Deps are the engine's collaborators. Clock and After default to the real
// clock and time.AfterFunc when left nil.
type Deps struct {
	Geo     GeoIndex
	Orders  OrderRepo
	Drivers DriverDirectory
	Locks   LockStore
	Sink    notify.Sink
	Clock   Clock
	After   func(d time.Duration, fn func())
}

type Engine struct {
	geo     GeoIndex
	orders  OrderRepo
	drivers DriverDirectory
	locks   LockStore
	sink    notify.Sink
	clock   Clock
	after   func(d time.Duration, fn func())
	cfg     config.DispatchConfig
	log     *zap.Logger
}

func NewEngine(deps Deps, cfg config.DispatchConfig, log *zap.Logger) *Engine {
	e := &Engine{
		geo:     deps.Geo,
		orders:  deps.Orders,
		drivers: deps.Drivers,
		locks:   deps.Locks,
		sink:    deps.Sink,
		clock:   deps.Clock,
		after:   deps.After,
		cfg:     cfg,
		log:     log,
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.after == nil {
		e.after = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return e
}

// Assign finds the nearest available drivers around the pickup point and
// offers the order to them one at a time, stopping at the first offer placed.
// The outcome of the offer arrives asynchronously via HandleResponse or, if
// the driver never answers, via Sweep.
func (e *Engine) Assign(ctx context.Context, orderID types.ID) error {
	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPending {
		return ErrInvalidState
	}

	// Duplicate-dispatch guard. The authoritative check is the atomic
	// set-if-absent inside offerToDriver; this read just fails fast on
	// retried or duplicated events.
	if _, held, err := e.locks.Get(ctx, orderLockKey(orderID)); err != nil {
		return err
	} else if held {
		return ErrAlreadyInProgress
	}

	candidates, err := e.geo.FindAvailable(ctx, o.Pickup.Location, e.cfg.RadiusKm, e.cfg.MaxCandidates)
	if err != nil {
		return err
	}

	// Drivers who already declined or timed out on this order are not
	// offered it again.
	eligible := make([]geo.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !o.HasAttemptFor(c.DriverID) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return ErrNoDriversAvailable
	}

	for _, c := range eligible {
		err := e.offerToDriver(ctx, o, c)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errDriverBusy):
			continue
		case errors.Is(err, errOrderLocked):
			// A competing dispatch holds the order lock; every remaining
			// candidate would fail the same way.
			return ErrAlreadyInProgress
		default:
			return err
		}
	}
	return ErrNoDriverAccepted
}

// offerToDriver acquires the paired locks, persists the attempt, and pushes
// the offer to the driver. Placing the offer succeeds regardless of whether
// or when the driver responds.
func (e *Engine) offerToDriver(ctx context.Context, o *order.Order, c geo.Candidate) error {
	d, err := e.drivers.Get(ctx, c.DriverID)
	if err != nil {
		return err
	}
	if !d.IsAvailable {
		// Went off duty between the GEO snapshot and now.
		return errDriverBusy
	}

	ok, err := e.locks.SetIfAbsent(ctx, driverLockKey(c.DriverID), string(o.ID), e.cfg.LockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return errDriverBusy
	}

	ok, err = e.locks.SetIfAbsent(ctx, orderLockKey(o.ID), string(c.DriverID), e.cfg.LockTTL)
	if err != nil {
		// Acquire both or release both: never leave a half-held pair.
		e.deleteLock(ctx, driverLockKey(c.DriverID))
		return err
	}
	if !ok {
		e.deleteLock(ctx, driverLockKey(c.DriverID))
		return errOrderLocked
	}

	now := e.clock.Now()
	expiresAt := now.Add(e.cfg.LockTTL)

	attempt := &order.Attempt{
		DriverID:    c.DriverID,
		AttemptedAt: now,
		Response:    order.ResponsePending,
	}
	if err := e.orders.AppendAttempt(ctx, o.ID, attempt); err != nil {
		e.releaseLocks(ctx, o.ID, c.DriverID)
		return err
	}
	o.Attempts = append(o.Attempts, *attempt)

	o.SetLock(c.DriverID, expiresAt)
	if err := e.orders.UpdateAssignment(ctx, o); err != nil {
		o.ClearLock()
		e.releaseLocks(ctx, o.ID, c.DriverID)
		return err
	}

	payload := OfferPayload{
		OrderID:            string(o.ID),
		PickupAddress:      o.Pickup.Address,
		PickupLat:          o.Pickup.Location.Lat,
		PickupLng:          o.Pickup.Location.Lng,
		DropoffAddress:     o.Dropoff.Address,
		DropoffLat:         o.Dropoff.Location.Lat,
		DropoffLng:         o.Dropoff.Location.Lng,
		FareAmount:         o.Fare.Amount,
		FareCurrency:       o.Fare.Currency,
		DistanceToPickupKm: c.DistanceKm,
		EtaMinutes:         geo.EstimateMinutes(c.DistanceKm, d.VehicleClass),
		ExpiresAt:          expiresAt,
	}
	if err := e.sink.Publish(ctx, notify.DriverChannel(c.DriverID), EventOrderOffer, payload); err != nil {
		// Fire-and-forget: a lost push surfaces as a timeout later.
		e.log.Warn("offer notification failed",
			zap.String("order_id", string(o.ID)),
			zap.String("driver_id", string(c.DriverID)),
			zap.Error(err))
	}

	e.log.Info("offer placed",
		zap.String("order_id", string(o.ID)),
		zap.String("driver_id", string(c.DriverID)),
		zap.Float64("distance_km", c.DistanceKm),
		zap.Time("expires_at", expiresAt))
	return nil
}

// HandleResponse processes a driver's accept or decline for an outstanding
// offer. Responses for orders that already moved on are a silent no-op; stale
// or mismatched lock pairs are rejected.
func (e *Engine) HandleResponse(ctx context.Context, orderID, driverID types.ID, resp Response) error {
	if resp != ResponseAccept && resp != ResponseDecline {
		return ErrInvalidResponse
	}

	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if o.Status != order.StatusPending {
		// Cancelled or already assigned while the offer was out. Release
		// whatever stale lock state remains and drop the response. The
		// driver may by now hold a live offer for a different order, so
		// only keys still naming this pair are deleted.
		e.releaseLocksIfOwned(ctx, orderID, driverID)
		if o.Lock.IsLocked {
			o.ClearLock()
			return e.orders.UpdateAssignment(ctx, o)
		}
		return nil
	}

	if err := e.verifyLockPair(ctx, orderID, driverID); err != nil {
		return err
	}

	now := e.clock.Now()
	attemptResp := order.ResponseDeclined
	if resp == ResponseAccept {
		attemptResp = order.ResponseAccepted
	}
	matched, err := e.orders.ResolveAttempt(ctx, orderID, driverID, attemptResp, now)
	if err != nil {
		return err
	}
	if !matched {
		return ErrNoMatchingAttempt
	}
	if a := o.PendingAttempt(driverID); a != nil {
		a.Response = attemptResp
		a.RespondedAt = &now
	}

	if resp == ResponseAccept {
		return e.finalizeAccept(ctx, o, driverID)
	}
	_, err = e.resolveRejection(ctx, o, driverID, "declined")
	return err
}

// verifyLockPair checks both keys exist and point at each other. Anything
// else means the offer expired or was never placed for this pair.
func (e *Engine) verifyLockPair(ctx context.Context, orderID, driverID types.ID) error {
	val, held, err := e.locks.Get(ctx, driverLockKey(driverID))
	if err != nil {
		return err
	}
	if !held || val != string(orderID) {
		return ErrStaleOffer
	}
	val, held, err = e.locks.Get(ctx, orderLockKey(orderID))
	if err != nil {
		return err
	}
	if !held || val != string(driverID) {
		return ErrStaleOffer
	}
	return nil
}

func (e *Engine) finalizeAccept(ctx context.Context, o *order.Order, driverID types.ID) error {
	o.Status = order.StatusAccepted
	o.AssignedDriverID = &driverID
	o.ClearLock()
	if err := e.orders.UpdateAssignment(ctx, o); err != nil {
		return err
	}

	if err := e.drivers.MarkBusy(ctx, driverID); err != nil {
		// The driver lock is gone after the release below, so a stale
		// availability flag only risks a rejected offer, not a double booking.
		e.log.Warn("marking driver busy failed",
			zap.String("driver_id", string(driverID)), zap.Error(err))
	}
	e.releaseLocksIfOwned(ctx, o.ID, driverID)

	eta := 0
	var driverName string
	if d, err := e.drivers.Get(ctx, driverID); err == nil {
		driverName = d.Name
		eta = geo.EstimateMinutes(geo.DistanceKm(d.Location, o.Pickup.Location), d.VehicleClass)
	}

	assigned := AssignedPayload{
		OrderID:    string(o.ID),
		DriverID:   string(driverID),
		DriverName: driverName,
		EtaMinutes: eta,
	}
	e.publish(ctx, notify.CustomerChannel(o.CustomerID), EventDriverAssigned, assigned)
	e.publish(ctx, notify.DriverChannel(driverID), EventOfferConfirmed, assigned)

	e.log.Info("order assigned",
		zap.String("order_id", string(o.ID)),
		zap.String("driver_id", string(driverID)))
	return nil
}

// resolveRejection is the shared decline/timeout branch: release the pair,
// then either schedule a re-dispatch or fail the order once the retry cap is
// spent. Returns the order's resulting status.
func (e *Engine) resolveRejection(ctx context.Context, o *order.Order, driverID types.ID, cause string) (order.Status, error) {
	o.ClearLock()

	retriesLeft := o.ResolvedAttempts() < e.cfg.MaxRetries
	if !retriesLeft {
		reason := fmt.Sprintf("no driver accepted after %d attempts", o.ResolvedAttempts())
		o.Status = order.StatusFailed
		o.FailureReason = &reason
	}

	if err := e.orders.UpdateAssignment(ctx, o); err != nil {
		return o.Status, err
	}
	// On the sweep path the driver key's TTL has already lapsed and the
	// driver may hold a fresh offer for another order; a value-checked
	// release leaves that pair alone.
	e.releaseLocksIfOwned(ctx, o.ID, driverID)

	if retriesLeft {
		e.scheduleReassign(o.ID)
		e.log.Info("offer resolved, reassignment scheduled",
			zap.String("order_id", string(o.ID)),
			zap.String("driver_id", string(driverID)),
			zap.String("cause", cause),
			zap.Int("resolved_attempts", o.ResolvedAttempts()))
		return o.Status, nil
	}

	e.publish(ctx, notify.CustomerChannel(o.CustomerID), EventOrderFailed, FailedPayload{
		OrderID: string(o.ID),
		Reason:  *o.FailureReason,
	})
	e.log.Warn("order failed",
		zap.String("order_id", string(o.ID)),
		zap.String("reason", *o.FailureReason))
	return o.Status, nil
}

// scheduleReassign submits a deferred re-dispatch instead of blocking the
// caller, so many outstanding retries do not each consume a goroutine for
// the delay.
func (e *Engine) scheduleReassign(orderID types.ID) {
	e.after(e.cfg.RetryDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retryAssignTimeout)
		defer cancel()

		err := e.Assign(ctx, orderID)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoDriversAvailable), errors.Is(err, ErrNoDriverAccepted):
			// The order stays pending; the next external trigger or a later
			// dispatch picks it up.
			e.log.Info("reassignment found no driver", zap.String("order_id", string(orderID)), zap.Error(err))
		case errors.Is(err, ErrInvalidState), errors.Is(err, ErrAlreadyInProgress):
			// Cancelled meanwhile, or another dispatch already owns it.
		default:
			e.log.Error("scheduled reassignment failed",
				zap.String("order_id", string(orderID)), zap.Error(err))
		}
	})
}

// Sweep reclaims orders whose lock expired without any response, resolving
// each exactly as an implicit decline. Individual failures never abort the
// batch.
func (e *Engine) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	ids, err := e.orders.LockExpiredBefore(ctx, e.clock.Now())
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		report.Processed++
		status, err := e.reapOrder(ctx, id)
		if err != nil {
			e.log.Error("sweep: order recovery failed",
				zap.String("order_id", string(id)), zap.Error(err))
			continue
		}
		switch status {
		case order.StatusFailed:
			report.Failed++
		case order.StatusPending:
			report.Reassigned++
		}
	}
	return report, nil
}

func (e *Engine) reapOrder(ctx context.Context, orderID types.ID) (order.Status, error) {
	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}

	var lockedBy types.ID
	if o.Lock.LockedBy != nil {
		lockedBy = *o.Lock.LockedBy
	}

	if o.Status != order.StatusPending {
		// Cancelled (or otherwise moved on) with a lock left behind: just
		// clean up, no reassignment. Keys that no longer name this pair
		// belong to someone else and are left to their own TTL.
		e.releaseLocksIfOwned(ctx, orderID, lockedBy)
		o.ClearLock()
		return o.Status, e.orders.UpdateAssignment(ctx, o)
	}

	if lockedBy != "" {
		now := e.clock.Now()
		matched, err := e.orders.ResolveAttempt(ctx, orderID, lockedBy, order.ResponseTimeout, now)
		if err != nil {
			return o.Status, err
		}
		if matched {
			if a := o.PendingAttempt(lockedBy); a != nil {
				a.Response = order.ResponseTimeout
				a.RespondedAt = &now
			}
		}
	}

	return e.resolveRejection(ctx, o, lockedBy, "timeout")
}

func (e *Engine) publish(ctx context.Context, channel, event string, payload any) {
	if err := e.sink.Publish(ctx, channel, event, payload); err != nil {
		e.log.Warn("notification failed",
			zap.String("channel", channel),
			zap.String("event", event),
			zap.Error(err))
	}
}

// releaseLocks deletes both keys of the pair. Delete failures are logged,
// not propagated: the TTL reclaims leftovers eventually and the reaper
// sweeps the order record. Only used right after this engine acquired the
// pair itself; everywhere else the release must be value-checked.
func (e *Engine) releaseLocks(ctx context.Context, orderID, driverID types.ID) {
	if driverID != "" {
		e.deleteLock(ctx, driverLockKey(driverID))
	}
	e.deleteLock(ctx, orderLockKey(orderID))
}

// releaseLocksIfOwned deletes each key of the pair only while it still holds
// this pair's value. An unconditional delete here could tear down a lock the
// driver meanwhile holds for a different order.
func (e *Engine) releaseLocksIfOwned(ctx context.Context, orderID, driverID types.ID) {
	if driverID != "" {
		e.deleteLockIfValue(ctx, driverLockKey(driverID), string(orderID))
		e.deleteLockIfValue(ctx, orderLockKey(orderID), string(driverID))
	}
}

func (e *Engine) deleteLockIfValue(ctx context.Context, key, want string) {
	val, held, err := e.locks.Get(ctx, key)
	if err != nil {
		e.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		return
	}
	if held && val == want {
		e.deleteLock(ctx, key)
	}
}

func (e *Engine) deleteLock(ctx context.Context, key string) {
	if err := e.locks.Delete(ctx, key); err != nil {
		e.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}
