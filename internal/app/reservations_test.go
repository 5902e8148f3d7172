package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hotel_booking/internal/adapters/memlock"
	"hotel_booking/internal/app"
	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

func (w *world) service(retries int) *app.ReservationService {
	return app.NewReservationService(w.store, w.engine(false), memlock.New(time.Second), retries)
}

func (w *world) newReservation(in, out string, rooms int) domain.Reservation {
	return domain.Reservation{
		HotelID: w.hotel.ID, RoomTypeID: ptr(w.rt.ID), GuestName: "Guest",
		CheckIn: day(in), CheckOut: day(out), Rooms: rooms,
	}
}

func (w *world) count(t *testing.T) int {
	t.Helper()
	page, err := w.store.ListReservations(context.Background(), domain.ReservationFilter{HotelID: w.hotel.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return page.Total
}

// ---- fakes ----

// busyLocker fails the first n acquisitions with ErrConflict.
type busyLocker struct {
	fails atomic.Int32
	calls atomic.Int32
}

func (l *busyLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	l.calls.Add(1)
	if l.fails.Add(-1) >= 0 {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrConflict, key)
	}
	return ctx, func() {}, nil
}

// lostLocker grants the key but reports the lease lost on the first n holds.
type lostLocker struct {
	lose  atomic.Int32
	calls atomic.Int32
}

func (l *lostLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	l.calls.Add(1)
	held, cancel := context.WithCancelCause(ctx)
	if l.lose.Add(-1) >= 0 {
		cancel(domain.ErrLockLost)
	}
	return held, func() { cancel(nil) }, nil
}

// ---- tests ----

func TestNormalizeReservation_Defaults(t *testing.T) {
	r := app.NewReservation(1)
	r.GuestName = "  Ayse "
	r.CheckIn, r.CheckOut = day("2025-03-10"), day("2025-03-11").Add(15*time.Hour)
	if err := app.NormalizeReservation(&r); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if r.Rooms != 1 || r.Status != domain.StatusConfirmed || r.Channel != "direct" || r.PaymentStatus != "unpaid" {
		t.Fatalf("defaults not applied: %+v", r)
	}
	if r.GuestName != "Ayse" || !r.CheckOut.Equal(day("2025-03-11")) {
		t.Fatalf("not normalized: %+v", r)
	}

	bad := []domain.Reservation{
		{HotelID: 1, CheckIn: day("2025-03-10"), CheckOut: day("2025-03-11"), Rooms: 1},
		{HotelID: 1, GuestName: "X", CheckIn: day("2025-03-10"), CheckOut: day("2025-03-10"), Rooms: 1},
		{HotelID: 1, GuestName: "X", CheckIn: day("2025-03-10"), CheckOut: day("2025-03-11"), Rooms: 1, Status: "held"},
		{HotelID: 1, GuestName: "X", CheckIn: day("2025-03-10"), CheckOut: day("2025-03-11"), Rooms: 1, Channel: "fax"},
		{HotelID: 1, GuestName: "X", CheckIn: day("2025-03-10"), CheckOut: day("2025-03-11"), Rooms: -1},
		{HotelID: 1, GuestName: "X", CheckIn: day("2025-03-10"), CheckOut: day("2025-03-11"), Rooms: 0},
	}
	for i, b := range bad {
		if err := app.NormalizeReservation(&b); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: want ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCreateAndUpdate_ZeroRoomsIsInputError(t *testing.T) {
	w := newWorld(t, 2)
	svc := w.service(0)
	ctx := context.Background()

	if _, err := svc.Create(ctx, w.newReservation("2025-03-10", "2025-03-12", 0)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("create rooms=0: want ErrInvalidInput, got %v", err)
	}
	if n := w.count(t); n != 0 {
		t.Fatalf("invalid booking persisted: %d reservations", n)
	}

	a, err := svc.Create(ctx, w.newReservation("2025-03-10", "2025-03-12", 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, w.hotel.ID, a.ID, domain.ReservationPatch{Rooms: ptr(0)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("update rooms=0: want ErrInvalidInput, got %v", err)
	}
	got, err := svc.Get(ctx, w.hotel.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Rooms != 1 {
		t.Fatalf("rejected update changed rooms to %d", got.Rooms)
	}
}

func TestCreate_RejectionPersistsNothing(t *testing.T) {
	w := newWorld(t, 2)
	svc := w.service(0)
	ctx := context.Background()

	if _, err := svc.Create(ctx, w.newReservation("2025-03-10", "2025-03-12", 2)); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := svc.Create(ctx, w.newReservation("2025-03-11", "2025-03-13", 1))
	capacityErr(t, err)
	if n := w.count(t); n != 1 {
		t.Fatalf("rejected booking persisted: %d reservations", n)
	}
}

func TestCreate_WithoutRoomTypeIsExempt(t *testing.T) {
	w := newWorld(t, 0)
	r := w.newReservation("2025-03-10", "2025-03-12", 3)
	r.RoomTypeID = nil
	if _, err := w.service(0).Create(context.Background(), r); err != nil {
		t.Fatalf("reservation without room type rejected: %v", err)
	}
}

func TestCreate_ConcurrentSingleRoomAcceptsExactlyOne(t *testing.T) {
	w := newWorld(t, 1)
	svc := w.service(3)

	const writers = 20
	var accepted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), w.newReservation("2025-03-10", "2025-03-13", 1))
			var ce *domain.CapacityError
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.As(err, &ce):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 || rejected.Load() != writers-1 {
		t.Fatalf("accepted=%d rejected=%d", accepted.Load(), rejected.Load())
	}
}

// Random concurrent stays never push any night past its allotment.
func TestCreate_ConcurrentNeverOversells(t *testing.T) {
	w := newWorld(t, 3)
	w.override(t, "2025-03-12", domain.InventoryPatch{Allotment: ptr(1)})
	svc := w.service(5)
	nights := calendar.NightsInRange(day("2025-03-10"), day("2025-03-17"))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			a := rng.Intn(len(nights) - 1)
			b := a + 1 + rng.Intn(len(nights)-a-1)
			r := w.newReservation(calendar.Key(nights[a]), calendar.Key(nights[b]), 1+rng.Intn(2))
			if rng.Intn(3) == 0 {
				r.Status = domain.StatusPending
			}
			_, _ = svc.Create(context.Background(), r)
		}(int64(i))
	}
	wg.Wait()

	page, err := w.store.ListReservations(context.Background(), domain.ReservationFilter{HotelID: w.hotel.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	used := map[string]int{}
	for _, r := range page.Items {
		for _, n := range calendar.NightsInRange(r.CheckIn, r.CheckOut) {
			used[calendar.Key(n)] += r.Rooms
		}
	}
	for night, n := range used {
		limit := 3
		if night == "2025-03-12" {
			limit = 1
		}
		if n > limit {
			t.Fatalf("night %s oversold: %d > %d", night, n, limit)
		}
	}
}

func TestCreate_RetriesLockConflicts(t *testing.T) {
	w := newWorld(t, 1)
	l := &busyLocker{}
	l.fails.Store(2)
	svc := app.NewReservationService(w.store, w.engine(false), l, 3)

	if _, err := svc.Create(context.Background(), w.newReservation("2025-03-10", "2025-03-11", 1)); err != nil {
		t.Fatalf("create after retries: %v", err)
	}
	if got := l.calls.Load(); got != 3 {
		t.Fatalf("want 3 lock attempts, got %d", got)
	}

	l.fails.Store(10)
	_, err := svc.Create(context.Background(), w.newReservation("2025-03-12", "2025-03-13", 1))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict after exhausting retries, got %v", err)
	}
	if n := w.count(t); n != 1 {
		t.Fatalf("conflicting booking persisted: %d reservations", n)
	}
}

func TestCreate_LostLeaseIsRetriedNotWritten(t *testing.T) {
	w := newWorld(t, 1)
	l := &lostLocker{}
	l.lose.Store(1)
	svc := app.NewReservationService(w.store, w.engine(false), l, 2)

	if _, err := svc.Create(context.Background(), w.newReservation("2025-03-10", "2025-03-11", 1)); err != nil {
		t.Fatalf("create after lost lease: %v", err)
	}
	if got := l.calls.Load(); got != 2 {
		t.Fatalf("want 2 lock attempts, got %d", got)
	}
	if n := w.count(t); n != 1 {
		t.Fatalf("want exactly one stored reservation, got %d", n)
	}

	l.lose.Store(10)
	_, err := svc.Create(context.Background(), w.newReservation("2025-03-12", "2025-03-13", 1))
	if !errors.Is(err, domain.ErrLockLost) {
		t.Fatalf("want ErrLockLost, got %v", err)
	}
	if n := w.count(t); n != 1 {
		t.Fatalf("write went through without a lease: %d reservations", n)
	}
}

func TestUpdate_RevalidatesGrowthOnly(t *testing.T) {
	w := newWorld(t, 2)
	svc := w.service(0)
	ctx := context.Background()

	a, err := svc.Create(ctx, w.newReservation("2025-03-10", "2025-03-12", 1))
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := svc.Create(ctx, w.newReservation("2025-03-11", "2025-03-12", 1)); err != nil {
		t.Fatalf("create b: %v", err)
	}

	// extending into free nights passes; its own nights are not double counted
	got, err := svc.Update(ctx, w.hotel.ID, a.ID, domain.ReservationPatch{CheckOut: ptr(day("2025-03-14"))})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !got.CheckOut.Equal(day("2025-03-14")) {
		t.Fatalf("extension not stored: %+v", got)
	}

	// a second room collides with b on 2025-03-11
	_, err = svc.Update(ctx, w.hotel.ID, a.ID, domain.ReservationPatch{Rooms: ptr(2)})
	if ce := capacityErr(t, err); !ce.Night.Equal(day("2025-03-11")) {
		t.Fatalf("unexpected rejection: %+v", ce)
	}

	// non-demand edits go through even when the room type is full
	if err := w.store.CreateReservation(ctx, &domain.Reservation{
		HotelID: w.hotel.ID, RoomTypeID: ptr(w.rt.ID), GuestName: "Overbooked",
		CheckIn: day("2025-03-10"), CheckOut: day("2025-03-11"), Rooms: 5, Status: domain.StatusConfirmed,
	}); err != nil {
		t.Fatalf("seed overbooking: %v", err)
	}
	got, err = svc.Update(ctx, w.hotel.ID, a.ID, domain.ReservationPatch{Notes: ptr("late arrival")})
	if err != nil {
		t.Fatalf("notes edit: %v", err)
	}
	if got.Notes != "late arrival" || got.Rooms != 1 {
		t.Fatalf("unexpected reservation: %+v", got)
	}
}

func TestSetStatus_ReactivationIsRevalidated(t *testing.T) {
	w := newWorld(t, 1)
	svc := w.service(0)
	ctx := context.Background()

	a, err := svc.Create(ctx, w.newReservation("2025-03-10", "2025-03-12", 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetStatus(ctx, w.hotel.ID, a.ID, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, w.newReservation("2025-03-11", "2025-03-12", 1)); err != nil {
		t.Fatalf("rebook freed night: %v", err)
	}

	_, err = svc.SetStatus(ctx, w.hotel.ID, a.ID, domain.StatusPending)
	capacityErr(t, err)

	got, err := svc.Get(ctx, w.hotel.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("rejected reactivation changed status to %s", got.Status)
	}

	if _, err := svc.SetStatus(ctx, w.hotel.ID, a.ID, "held"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestList_Paging(t *testing.T) {
	w := newWorld(t, 0)
	svc := w.service(0)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		r := w.newReservation("2025-03-10", "2025-03-11", 1)
		r.RoomTypeID = nil
		if _, err := svc.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, domain.ReservationFilter{HotelID: w.hotel.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 25 || page.Page != 1 || page.Pages != 2 || len(page.Items) != 20 {
		t.Fatalf("unexpected first page: total=%d page=%d pages=%d items=%d", page.Total, page.Page, page.Pages, len(page.Items))
	}
	page, err = svc.List(ctx, domain.ReservationFilter{HotelID: w.hotel.ID, Page: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 5 {
		t.Fatalf("second page: %d items", len(page.Items))
	}
}
