// Command seeder fills a database with demo hotels, room types and a month
// of inventory. Hotels that already exist (by code) are left alone.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/adapters/memlock"
	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/app"
	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage/memory"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

var cities = []string{"Istanbul", "Antalya", "Izmir", "Bodrum", "Cappadocia"}

var roomTypes = []domain.RoomType{
	{Code: "STD", Name: "Standard", BasePrice: 1800, CapacityAdults: 2, TotalRooms: 12, BedType: "double"},
	{Code: "DLX", Name: "Deluxe Sea View", BasePrice: 2900, CapacityAdults: 2, CapacityChildren: 1, TotalRooms: 6, BedType: "king"},
	{Code: "FAM", Name: "Family Suite", BasePrice: 4200, CapacityAdults: 4, CapacityChildren: 2, TotalRooms: 3, BedType: "twin+double"},
}

type seeder struct {
	hotels    *app.HotelService
	roomTypes *app.RoomTypeService
	inventory *app.InventoryService
	existing  map[string]bool
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("storage", cfg.Storage).
		Int("workers", cfg.SeedWorkers).
		Int("hotels", cfg.SeedHotels).
		Msg("seeder starting")

	var store domain.Store
	if cfg.Storage == "memory" {
		store = memory.New()
	} else {
		db, err := mysqlrepo.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		defer db.Close()
		log.Info().Msg("db ping ok")
		store = mysqlrepo.New(db)
	}

	s := &seeder{
		hotels:    app.NewHotelService(store, nil, 0),
		roomTypes: app.NewRoomTypeService(store, store, memlock.New(0)),
		inventory: app.NewInventoryService(store, store, cfg.InventoryWorkers),
		existing:  map[string]bool{},
	}
	have, err := s.hotels.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list hotels failed")
	}
	for _, h := range have {
		s.existing[h.Code] = true
	}

	workers := max(cfg.SeedWorkers, 1)
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i := 1; i <= cfg.SeedHotels; i++ {
		code := fmt.Sprintf("DEMO%02d", i)
		if s.existing[code] {
			log.Info().Str("code", code).Msg("hotel exists, skipping")
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(n int, code string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.seedHotel(ctx, n, code); err != nil {
				log.Warn().Str("code", code).Err(err).Msg("seed failed")
				return
			}
			log.Info().Str("code", code).Msg("seed ok")
		}(i, code)
	}

	wg.Wait()
	log.Info().Msg("seeding completed")
}

func (s *seeder) seedHotel(ctx context.Context, n int, code string) error {
	city := cities[(n-1)%len(cities)]
	h, err := s.hotels.Create(ctx, domain.Hotel{
		Code:     code,
		Name:     fmt.Sprintf("Demo %s Hotel %d", city, n),
		City:     city,
		Currency: "TRY",
		Timezone: "Europe/Istanbul",
	})
	if err != nil {
		return fmt.Errorf("create hotel: %w", err)
	}

	start := calendar.Day(time.Now())
	end := start.AddDate(0, 0, 30)

	g, gctx := errgroup.WithContext(ctx)
	for _, tmpl := range roomTypes {
		g.Go(func() error {
			tmpl.HotelID = h.ID
			rt, err := s.roomTypes.Create(gctx, tmpl)
			if err != nil {
				return fmt.Errorf("room type %s: %w", tmpl.Code, err)
			}
			return s.seedInventory(gctx, rt, start, end)
		})
	}
	return g.Wait()
}

// seedInventory marks weekends up by 20% and closes the first night of the
// family suites for maintenance.
func (s *seeder) seedInventory(ctx context.Context, rt domain.RoomType, start, end time.Time) error {
	for _, night := range calendar.NightsInRange(start, end) {
		if wd := night.Weekday(); wd != time.Friday && wd != time.Saturday {
			continue
		}
		price := rt.BasePrice * 1.2
		if _, err := s.inventory.BulkUpsert(ctx, app.BulkUpsertRequest{
			HotelID:    rt.HotelID,
			RoomTypeID: rt.ID,
			Start:      night,
			End:        night.AddDate(0, 0, 1),
			Patch:      domain.InventoryPatch{Price: &price},
		}); err != nil {
			return fmt.Errorf("weekend price %s: %w", calendar.Key(night), err)
		}
	}
	if rt.Code == "FAM" {
		stop := true
		if _, err := s.inventory.BulkUpsert(ctx, app.BulkUpsertRequest{
			HotelID:    rt.HotelID,
			RoomTypeID: rt.ID,
			Start:      start,
			End:        start.AddDate(0, 0, 1),
			Patch:      domain.InventoryPatch{StopSell: &stop},
		}); err != nil {
			return fmt.Errorf("stop-sell: %w", err)
		}
	}
	return nil
}
