package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hotel_booking/internal/app"
	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

func TestGuests_BindMatchesReturningGuest(t *testing.T) {
	w := newWorld(t, 1)
	svc := app.NewGuestService(w.store)
	ctx := context.Background()

	first, err := svc.Bind(ctx, w.hotel.ID, nil, &domain.GuestContact{Name: " Ayse Kaya ", Email: " AYSE@example.com "})
	if err != nil {
		t.Fatalf("bind new: %v", err)
	}
	if first == nil || first.ID == 0 || first.Email != "ayse@example.com" || first.Name != "Ayse Kaya" {
		t.Fatalf("guest not created or normalized: %+v", first)
	}

	// same email: refreshed, not duplicated; empty fields keep stored values
	again, err := svc.Bind(ctx, w.hotel.ID, nil, &domain.GuestContact{Name: "Ayşe Kaya", Email: "ayse@example.com", Phone: "+905551112233"})
	if err != nil {
		t.Fatalf("bind returning: %v", err)
	}
	if again.ID != first.ID || again.Name != "Ayşe Kaya" || again.Phone != "+905551112233" {
		t.Fatalf("returning guest not merged: %+v", again)
	}

	// phone alone is enough to recognise the guest
	byPhone, err := svc.Bind(ctx, w.hotel.ID, nil, &domain.GuestContact{Name: "A. Kaya", Phone: "+905551112233"})
	if err != nil {
		t.Fatalf("bind by phone: %v", err)
	}
	if byPhone.ID != first.ID || byPhone.Email != "ayse@example.com" {
		t.Fatalf("phone match lost the guest: %+v", byPhone)
	}

	// no contact details: always a new guest
	other, err := svc.Bind(ctx, w.hotel.ID, nil, &domain.GuestContact{Name: "Ayse Kaya"})
	if err != nil {
		t.Fatalf("bind without contact: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("guest without contact details matched an existing one")
	}
}

func TestGuests_BindByIDAndNoop(t *testing.T) {
	w := newWorld(t, 1)
	svc := app.NewGuestService(w.store)
	ctx := context.Background()

	g := domain.Guest{HotelID: w.hotel.ID, Name: "Can"}
	if err := w.store.CreateGuest(ctx, &g); err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	got, err := svc.Bind(ctx, w.hotel.ID, &g.ID, &domain.GuestContact{Name: "ignored"})
	if err != nil || got == nil || got.ID != g.ID || got.Name != "Can" {
		t.Fatalf("bind by id: %+v %v", got, err)
	}

	if _, err := svc.Bind(ctx, w.hotel.ID, ptr(int64(9999)), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown guest id: want ErrInvalidInput, got %v", err)
	}

	other := domain.Hotel{Code: "H2", Name: "Other", Currency: "TRY", Timezone: "UTC", Active: true}
	if err := w.store.CreateHotel(ctx, &other); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
	if _, err := svc.Bind(ctx, other.ID, &g.ID, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("foreign guest id: want ErrInvalidInput, got %v", err)
	}

	for _, c := range []*domain.GuestContact{nil, {Email: "x@example.com"}, {Name: "   "}} {
		got, err := svc.Bind(ctx, w.hotel.ID, nil, c)
		if err != nil || got != nil {
			t.Fatalf("bind %+v: want no guest, got %+v %v", c, got, err)
		}
	}
}

func TestGuests_Search(t *testing.T) {
	w := newWorld(t, 1)
	svc := app.NewGuestService(w.store)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		g := domain.Guest{HotelID: w.hotel.ID, Name: fmt.Sprintf("Guest %02d", i), Phone: fmt.Sprintf("+90555%04d", i)}
		if err := w.store.CreateGuest(ctx, &g); err != nil {
			t.Fatalf("seed guest: %v", err)
		}
	}

	short, err := svc.Search(ctx, w.hotel.ID, " g ")
	if err != nil || short == nil || len(short) != 0 {
		t.Fatalf("one-character query: want empty list, got %v %v", short, err)
	}
	all, err := svc.Search(ctx, w.hotel.ID, "GUEST")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 20 {
		t.Fatalf("want 20 results, got %d", len(all))
	}
	one, err := svc.Search(ctx, w.hotel.ID, "5550007")
	if err != nil {
		t.Fatalf("search phone: %v", err)
	}
	if len(one) != 1 || one[0].Name != "Guest 07" {
		t.Fatalf("phone search: %+v", one)
	}
}

func TestGuests_Card(t *testing.T) {
	w := newWorld(t, 5)
	svc := app.NewGuestService(w.store)
	ctx := context.Background()

	g := domain.Guest{HotelID: w.hotel.ID, Name: "Elif"}
	if err := w.store.CreateGuest(ctx, &g); err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	today := calendar.Day(time.Now())
	at := func(offset int) time.Time { return today.AddDate(0, 0, offset) }
	stay := func(in, out int, price float64, st domain.ReservationStatus) domain.Reservation {
		r := domain.Reservation{
			HotelID: w.hotel.ID, RoomTypeID: ptr(w.rt.ID), GuestID: ptr(g.ID), GuestName: "Elif",
			CheckIn: at(in), CheckOut: at(out), Rooms: 1, Status: st, Channel: "direct", TotalPrice: price,
		}
		if err := w.store.CreateReservation(ctx, &r); err != nil {
			t.Fatalf("seed reservation: %v", err)
		}
		return r
	}
	past := stay(-10, -7, 300, domain.StatusConfirmed)
	stay(-30, -28, 999, domain.StatusCancelled)
	next := stay(5, 7, 200, domain.StatusPending)
	stay(20, 21, 100, domain.StatusConfirmed)

	card, err := svc.Card(ctx, w.hotel.ID, g.ID)
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	st := card.Stats
	if card.Guest.ID != g.ID || st.Stays != 3 || st.TotalNights != 6 || st.TotalRevenue != 600 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.LastStay == nil || st.LastStay.ID != past.ID {
		t.Fatalf("last stay: %+v", st.LastStay)
	}
	if st.NextStay == nil || st.NextStay.ID != next.ID {
		t.Fatalf("next stay: %+v", st.NextStay)
	}

	if _, err := svc.Card(ctx, w.hotel.ID, 4242); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing guest: %v", err)
	}
}

func TestList_GuestFilter(t *testing.T) {
	w := newWorld(t, 0)
	svc := w.service(0)
	ctx := context.Background()

	g := domain.Guest{HotelID: w.hotel.ID, Name: "Deniz Yilmaz", Email: "deniz@example.com"}
	if err := w.store.CreateGuest(ctx, &g); err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	linked := w.newReservation("2025-03-10", "2025-03-11", 1)
	linked.RoomTypeID, linked.GuestID, linked.GuestName = nil, ptr(g.ID), "Walk-in"
	named := w.newReservation("2025-03-12", "2025-03-13", 1)
	named.RoomTypeID, named.GuestName = nil, "Deniz Aksoy"
	stranger := w.newReservation("2025-03-14", "2025-03-15", 1)
	stranger.RoomTypeID, stranger.GuestName = nil, "Burak"
	for _, r := range []domain.Reservation{linked, named, stranger} {
		if _, err := svc.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, domain.ReservationFilter{HotelID: w.hotel.ID, Guest: "deniz"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("want 2 matches, got %d", page.Total)
	}
	page, err = svc.List(ctx, domain.ReservationFilter{HotelID: w.hotel.ID, Guest: "@example"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].GuestName != "Walk-in" {
		t.Fatalf("email match: %+v", page.Items)
	}
}
