// README: Driver record definition.
package driver

import (
	"time"

	"fleet/internal/types"
)

type Driver struct {
	ID           types.ID
	Name         string
	Phone        string
	VehicleClass string
	IsAvailable  bool
	Location     types.Point
	UpdatedAt    time.Time
}
