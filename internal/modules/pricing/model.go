// README: Pricing rate definition for each vehicle class.
package pricing

type Rate struct {
	VehicleClass string
	BaseFare     int64
	PerKm        int64
	Currency     string
}
