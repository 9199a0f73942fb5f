// README: Driver registration, availability, location, and offer-response handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/modules/dispatch"
	"fleet/internal/modules/driver"
	"fleet/internal/types"
)

type DriverHandler struct {
	drivers *driver.Service
	engine  *dispatch.Engine
}

func NewDriverHandler(drivers *driver.Service, engine *dispatch.Engine) *DriverHandler {
	return &DriverHandler{drivers: drivers, engine: engine}
}

type registerDriverReq struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
}

func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drivers.Register(c.Request.Context(), driver.RegisterCommand{
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"driver_id": d.ID})
}

type availabilityReq struct {
	Available bool    `json:"available"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	err := h.drivers.SetAvailability(c.Request.Context(), id, req.Available, types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": id, "available": req.Available})
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.drivers.UpdateLocation(c.Request.Context(), id, types.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		writeOrderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type responseReq struct {
	OrderID  string `json:"order_id"`
	Response string `json:"response"`
}

// Respond is the webhook the driver app calls to accept or decline an
// outstanding offer.
func (h *DriverHandler) Respond(c *gin.Context) {
	var req responseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" {
		writeError(c, http.StatusBadRequest, "missing order_id")
		return
	}

	driverID := types.ID(c.Param("id"))
	err := h.engine.HandleResponse(c.Request.Context(), types.ID(req.OrderID), driverID, dispatch.Response(req.Response))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "driver_id": driverID, "response": req.Response})
}
