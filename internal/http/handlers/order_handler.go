// README: Order intake, status, and cancel handlers; intake triggers dispatch.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/modules/dispatch"
	"fleet/internal/modules/order"
	"fleet/internal/types"
)

type OrderHandler struct {
	orders *order.Service
	engine *dispatch.Engine
}

func NewOrderHandler(orders *order.Service, engine *dispatch.Engine) *OrderHandler {
	return &OrderHandler{orders: orders, engine: engine}
}

type stopReq struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type createOrderReq struct {
	CustomerID   string  `json:"customer_id"`
	Pickup       stopReq `json:"pickup"`
	Dropoff      stopReq `json:"dropoff"`
	VehicleClass string  `json:"vehicle_class"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.CustomerID == "" || req.VehicleClass == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}

	o, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		CustomerID:   types.ID(req.CustomerID),
		Pickup:       order.Stop{Address: req.Pickup.Address, Location: types.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng}},
		Dropoff:      order.Stop{Address: req.Dropoff.Address, Location: types.Point{Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng}},
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}

	// Dispatch immediately. An empty candidate pool is not an intake error:
	// the order stays pending for a later trigger.
	if err := h.engine.Assign(c.Request.Context(), o.ID); err != nil {
		if errors.Is(err, dispatch.ErrNoDriversAvailable) || errors.Is(err, dispatch.ErrNoDriverAccepted) {
			c.JSON(http.StatusAccepted, gin.H{
				"order_id": o.ID,
				"status":   order.StatusPending,
				"detail":   err.Error(),
			})
			return
		}
		writeDispatchError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order_id": o.ID, "status": o.Status})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	o, err := h.orders.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	resp := gin.H{
		"order_id":      o.ID,
		"status":        o.Status,
		"vehicle_class": o.VehicleClass,
		"fare_amount":   o.Fare.Amount,
		"fare_currency": o.Fare.Currency,
	}
	if o.AssignedDriverID != nil {
		resp["driver_id"] = *o.AssignedDriverID
	}
	if o.FailureReason != nil {
		resp["failure_reason"] = *o.FailureReason
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.orders.Cancel(c.Request.Context(), types.ID(id)); err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": order.StatusCancelled})
}

// Delivery-phase transition endpoints, driven by the assigned driver's app.

func (h *OrderHandler) StartPickup(c *gin.Context) {
	h.transition(c, h.orders.StartPickup, order.StatusPickupStarted)
}

func (h *OrderHandler) MarkPickedUp(c *gin.Context) {
	h.transition(c, h.orders.MarkPickedUp, order.StatusPickedUp)
}

func (h *OrderHandler) StartTransit(c *gin.Context) {
	h.transition(c, h.orders.StartTransit, order.StatusInTransit)
}

func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	h.transition(c, h.orders.MarkDelivered, order.StatusDelivered)
}

func (h *OrderHandler) transition(c *gin.Context, fn func(context.Context, types.ID) error, to order.Status) {
	id := c.Param("id")
	if err := fn(c.Request.Context(), types.ID(id)); err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": to})
}
