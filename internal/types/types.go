// README: Common identifier and geographic value objects used across modules.
package types

// ID identifies an order, driver, or customer. Always an opaque string,
// never a storage-level numeric key.
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}
