// README: HTTP route registration on gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet/internal/http/handlers"
	"fleet/internal/http/middleware"
	"fleet/internal/modules/dispatch"
	"fleet/internal/modules/driver"
	"fleet/internal/modules/order"
)

func NewRouter(
	orderService *order.Service,
	driverService *driver.Service,
	engine *dispatch.Engine,
	log *zap.Logger,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log))

	orderHandler := handlers.NewOrderHandler(orderService, engine)
	r.POST("/api/orders", orderHandler.Create)
	r.GET("/api/orders/:id", orderHandler.Get)
	r.POST("/api/orders/:id/cancel", orderHandler.Cancel)
	r.POST("/api/orders/:id/pickup-started", orderHandler.StartPickup)
	r.POST("/api/orders/:id/picked-up", orderHandler.MarkPickedUp)
	r.POST("/api/orders/:id/in-transit", orderHandler.StartTransit)
	r.POST("/api/orders/:id/delivered", orderHandler.MarkDelivered)

	driverHandler := handlers.NewDriverHandler(driverService, engine)
	r.POST("/api/drivers", driverHandler.Register)
	r.PUT("/api/drivers/:id/availability", driverHandler.SetAvailability)
	r.PUT("/api/drivers/:id/location", driverHandler.UpdateLocation)
	r.POST("/api/drivers/:id/response", driverHandler.Respond)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
