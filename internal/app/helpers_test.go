package app_test

import (
	"context"
	"testing"
	"time"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type world struct {
	store *memory.Store
	hotel domain.Hotel
	rt    domain.RoomType
}

// newWorld seeds one hotel with a room type of the given physical size.
func newWorld(t *testing.T, totalRooms int) *world {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	h := domain.Hotel{Code: "H1", Name: "Hotel", Currency: "TRY", Timezone: "UTC", Active: true}
	if err := s.CreateHotel(ctx, &h); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
	rt := domain.RoomType{HotelID: h.ID, Code: "STD", Name: "Standard", BasePrice: 100, CapacityAdults: 2, TotalRooms: totalRooms}
	if err := s.CreateRoomType(ctx, &rt); err != nil {
		t.Fatalf("seed room type: %v", err)
	}
	return &world{store: s, hotel: h, rt: rt}
}

func (w *world) engine(allowUnbounded bool) *app.AvailabilityEngine {
	return app.NewAvailabilityEngine(w.store, w.store, w.store, allowUnbounded)
}

// book stores a reservation directly, bypassing availability.
func (w *world) book(t *testing.T, in, out string, rooms int, st domain.ReservationStatus) domain.Reservation {
	t.Helper()
	r := domain.Reservation{
		HotelID: w.hotel.ID, RoomTypeID: ptr(w.rt.ID), GuestName: "Guest",
		CheckIn: day(in), CheckOut: day(out), Rooms: rooms, Status: st, Channel: "direct",
	}
	if err := w.store.CreateReservation(context.Background(), &r); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return r
}

func (w *world) override(t *testing.T, d string, p domain.InventoryPatch) {
	t.Helper()
	if err := w.store.UpsertInventoryDay(context.Background(), w.hotel.ID, w.rt.ID, day(d), p); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
}

func (w *world) stay(in, out string, rooms int) app.StayRequest {
	return app.StayRequest{HotelID: w.hotel.ID, RoomTypeID: w.rt.ID, CheckIn: day(in), CheckOut: day(out), Rooms: rooms}
}
