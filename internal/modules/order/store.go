// README: Order store backed by PostgreSQL; attempts live in a child table.
package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, status, vehicle_class,
			pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng,
			fare_amount, fare_currency,
			assigned_driver_id, is_locked, locked_by, lock_expires_at,
			failure_reason, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12,
			$13, $14, $15, $16,
			$17, $18, $19
		)`,
		string(o.ID),
		string(o.CustomerID),
		string(o.Status),
		o.VehicleClass,
		o.Pickup.Address, o.Pickup.Location.Lat, o.Pickup.Location.Lng,
		o.Dropoff.Address, o.Dropoff.Location.Lat, o.Dropoff.Location.Lng,
		o.Fare.Amount, o.Fare.Currency,
		toStringPtr(o.AssignedDriverID),
		o.Lock.IsLocked, toStringPtr(o.Lock.LockedBy), o.Lock.ExpiresAt,
		o.FailureReason,
		o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, status, vehicle_class,
		       pickup_address, pickup_lat, pickup_lng,
		       dropoff_address, dropoff_lat, dropoff_lng,
		       fare_amount, fare_currency,
		       assigned_driver_id, is_locked, locked_by, lock_expires_at,
		       failure_reason, created_at, updated_at
		FROM orders
		WHERE id = $1`, string(id),
	)

	var o Order
	var assignedDriver, lockedBy, failureReason sql.NullString
	var lockExpiresAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.VehicleClass,
		&o.Pickup.Address, &o.Pickup.Location.Lat, &o.Pickup.Location.Lng,
		&o.Dropoff.Address, &o.Dropoff.Location.Lat, &o.Dropoff.Location.Lng,
		&o.Fare.Amount, &o.Fare.Currency,
		&assignedDriver, &o.Lock.IsLocked, &lockedBy, &lockExpiresAt,
		&failureReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if assignedDriver.Valid {
		d := types.ID(assignedDriver.String)
		o.AssignedDriverID = &d
	}
	if lockedBy.Valid {
		d := types.ID(lockedBy.String)
		o.Lock.LockedBy = &d
	}
	if lockExpiresAt.Valid {
		t := lockExpiresAt.Time
		o.Lock.ExpiresAt = &t
	}
	if failureReason.Valid {
		o.FailureReason = &failureReason.String
	}

	attempts, err := s.loadAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Attempts = attempts
	return &o, nil
}

func (s *Store) loadAttempts(ctx context.Context, orderID types.ID) ([]Attempt, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, driver_id, attempted_at, response, responded_at
		FROM assignment_attempts
		WHERE order_id = $1
		ORDER BY id`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var respondedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.DriverID, &a.AttemptedAt, &a.Response, &respondedAt); err != nil {
			return nil, err
		}
		if respondedAt.Valid {
			t := respondedAt.Time
			a.RespondedAt = &t
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// UpdateAssignment persists the assignment-phase fields: status, assigned
// driver, lock, and failure reason. Attempt rows are written separately.
func (s *Store) UpdateAssignment(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    assigned_driver_id = $2,
		    is_locked = $3,
		    locked_by = $4,
		    lock_expires_at = $5,
		    failure_reason = $6,
		    updated_at = NOW()
		WHERE id = $7`,
		string(o.Status),
		toStringPtr(o.AssignedDriverID),
		o.Lock.IsLocked,
		toStringPtr(o.Lock.LockedBy),
		o.Lock.ExpiresAt,
		o.FailureReason,
		string(o.ID),
	)
	return err
}

// UpdateStatus performs a compare-and-swap status transition. Returns false
// when the order was concurrently moved out of the expected status.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendAttempt(ctx context.Context, orderID types.ID, a *Attempt) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO assignment_attempts (order_id, driver_id, attempted_at, response)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		string(orderID), string(a.DriverID), a.AttemptedAt, string(a.Response),
	)
	return row.Scan(&a.ID)
}

// ResolveAttempt moves the driver's pending attempt to a terminal response.
// Returns false when no pending attempt exists for this (order, driver) pair,
// which keeps resolution idempotent under duplicate webhooks.
func (s *Store) ResolveAttempt(ctx context.Context, orderID, driverID types.ID, resp AttemptResponse, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE assignment_attempts
		SET response = $1, responded_at = $2
		WHERE order_id = $3 AND driver_id = $4 AND response = 'pending'`,
		string(resp), at, string(orderID), string(driverID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// LockExpiredBefore lists orders whose lock expiry has passed; the reaper
// feeds these back through the timeout path.
func (s *Store) LockExpiredBefore(ctx context.Context, t time.Time) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM orders
		WHERE is_locked = TRUE AND lock_expires_at <= $1
		ORDER BY lock_expires_at`, t,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
