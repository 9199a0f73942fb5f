// README: Entry point; loads config, wires services, starts HTTP server and the lock reaper.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fleet/internal/config"
	httptransport "fleet/internal/http"
	"fleet/internal/infra"
	"fleet/internal/maps"
	"fleet/internal/modules/dispatch"
	"fleet/internal/modules/driver"
	"fleet/internal/modules/geo"
	"fleet/internal/modules/order"
	"fleet/internal/modules/pricing"
	"fleet/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(os.Getenv("FLEET_ENV"))
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var geocoder order.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocoder(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps init", zap.Error(err))
		}
		geocoder = g
	}

	var sink notify.Sink
	switch cfg.Notify.Driver {
	case "fcm":
		sink, err = notify.NewFCMSink(ctx, cfg.Notify.FCMProjectID, cfg.Notify.FCMCredentials)
		if err != nil {
			logger.Fatal("fcm init", zap.Error(err))
		}
	default:
		sink = notify.NewRedisSink(redisClient)
	}

	geoIndex := geo.NewIndex(redisClient)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool))
	driverSvc := driver.NewService(driver.NewStore(dbPool), geoIndex, logger)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, pricingSvc, geocoder, driverSvc, logger)

	engine := dispatch.NewEngine(dispatch.Deps{
		Geo:     geoIndex,
		Orders:  orderStore,
		Drivers: driverSvc,
		Locks:   dispatch.NewRedisLockStore(redisClient),
		Sink:    sink,
	}, cfg.Dispatch, logger)

	reaper := dispatch.NewReaper(engine, cfg.Dispatch.ReaperInterval, logger)
	go reaper.Run(ctx)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httptransport.NewRouter(orderSvc, driverSvc, engine, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
}
