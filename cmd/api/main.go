package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/adapters/memlock"
	"hotel_booking/internal/adapters/observability"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage/memory"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// storage
	var store domain.Store
	switch cfg.Storage {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		store = memory.New()
	default:
		db, err := mysqlrepo.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		defer db.Close()
		log.Info().Msg("database connection ok")
		store = mysqlrepo.New(db)
	}

	// cache and availability lock
	var cache domain.Cache
	var locker domain.Locker = memlock.New(cfg.LockWait)
	if cfg.RedisAddr != "" {
		rdb := redisad.Dial(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rdb.Close()
		cache = redisad.NewCache(rdb)
		if cfg.LockBackend == "redis" {
			locker = redisad.NewLocker(rdb, cfg.LockTTL, cfg.LockWait)
		}
	}
	log.Info().
		Str("storage", cfg.Storage).
		Str("lock", cfg.LockBackend).
		Bool("cache", cache != nil).
		Bool("unbounded_unconfigured", cfg.AllowUnbounded).
		Msg("dependencies ready")

	// services
	engine := app.NewAvailabilityEngine(store, store, store, cfg.AllowUnbounded)
	h := &server.Handlers{
		Hotels:       app.NewHotelService(store, cache, cfg.CacheTTL),
		RoomTypes:    app.NewRoomTypeService(store, store, locker),
		Inventory:    app.NewInventoryService(store, store, cfg.InventoryWorkers),
		Quotes:       app.NewQuoteService(engine),
		Reservations: app.NewReservationService(store, engine, locker, cfg.BookingRetries),
		Guests:       app.NewGuestService(store),
		JWTSecret:    []byte(cfg.JWTSecret),
		BookingRPS:   cfg.BookingRPS,
	}

	// http
	srv := server.New(cfg.HTTPTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
