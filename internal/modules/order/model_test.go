package order

import (
	"testing"
	"time"

	"fleet/internal/types"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusDelivered, false},
		{StatusAccepted, StatusPickupStarted, true},
		{StatusAccepted, StatusFailed, false},
		{StatusPickupStarted, StatusPickedUp, true},
		{StatusPickedUp, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusInTransit, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusAccepted, false},
		{StatusFailed, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestAttemptHelpers(t *testing.T) {
	now := time.Now()
	o := &Order{
		Attempts: []Attempt{
			{ID: 1, DriverID: "d1", Response: ResponseDeclined, RespondedAt: &now},
			{ID: 2, DriverID: "d2", Response: ResponseTimeout, RespondedAt: &now},
			{ID: 3, DriverID: "d3", Response: ResponsePending},
		},
	}

	if got := o.ResolvedAttempts(); got != 2 {
		t.Fatalf("ResolvedAttempts() = %d, want 2", got)
	}

	if a := o.PendingAttempt("d3"); a == nil || a.ID != 3 {
		t.Fatalf("PendingAttempt(d3) = %+v, want attempt 3", a)
	}
	if a := o.PendingAttempt("d1"); a != nil {
		t.Fatalf("PendingAttempt(d1) = %+v, want nil for resolved attempt", a)
	}
	if a := o.PendingAttempt("d9"); a != nil {
		t.Fatalf("PendingAttempt(d9) = %+v, want nil", a)
	}

	for _, id := range []types.ID{"d1", "d2", "d3"} {
		if !o.HasAttemptFor(id) {
			t.Fatalf("HasAttemptFor(%s) = false, want true", id)
		}
	}
	if o.HasAttemptFor("d9") {
		t.Fatal("HasAttemptFor(d9) = true, want false")
	}
}

func TestLockFields(t *testing.T) {
	o := &Order{}
	expires := time.Now().Add(5 * time.Minute)
	o.SetLock("d1", expires)

	if !o.Lock.IsLocked || o.Lock.LockedBy == nil || *o.Lock.LockedBy != "d1" {
		t.Fatalf("SetLock left %+v", o.Lock)
	}
	if o.Lock.ExpiresAt == nil || !o.Lock.ExpiresAt.Equal(expires) {
		t.Fatalf("expiry = %v, want %v", o.Lock.ExpiresAt, expires)
	}

	o.ClearLock()
	if o.Lock.IsLocked || o.Lock.LockedBy != nil || o.Lock.ExpiresAt != nil {
		t.Fatalf("ClearLock left %+v", o.Lock)
	}
}
