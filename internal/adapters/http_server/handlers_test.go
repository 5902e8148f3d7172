package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	httpserver "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/adapters/memlock"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/storage/memory"
)

var secret = []byte("test-secret")

type fixture struct {
	srv   *httptest.Server
	store *memory.Store
	hotel domain.Hotel
	rt    domain.RoomType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	hotel := domain.Hotel{Code: "IST01", Name: "Bosphorus", Currency: "TRY", Timezone: "Europe/Istanbul", Active: true}
	if err := store.CreateHotel(ctx, &hotel); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
	rt := domain.RoomType{HotelID: hotel.ID, Code: "STD", Name: "Standard", BasePrice: 100, CapacityAdults: 2, TotalRooms: 2}
	if err := store.CreateRoomType(ctx, &rt); err != nil {
		t.Fatalf("seed room type: %v", err)
	}

	engine := app.NewAvailabilityEngine(store, store, store, false)
	locker := memlock.New(time.Second)
	h := &httpserver.Handlers{
		Hotels:       app.NewHotelService(store, nil, time.Minute),
		RoomTypes:    app.NewRoomTypeService(store, store, locker),
		Inventory:    app.NewInventoryService(store, store, 4),
		Quotes:       app.NewQuoteService(engine),
		Reservations: app.NewReservationService(store, engine, locker, 2),
		Guests:       app.NewGuestService(store),
		JWTSecret:    secret,
	}
	s := httpserver.New(0)
	s.MountHandlers(h)
	srv := httptest.NewServer(s.Mux())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, hotel: hotel, rt: rt}
}

func token(t *testing.T, role string, hotel int64) string {
	t.Helper()
	claims := httpserver.Claims{
		Role:  role,
		Hotel: hotel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-" + role,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func (f *fixture) do(t *testing.T, method, path, tok string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, rd)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, b
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, http.MethodGet, "/healthz", "", nil)
	if res.StatusCode != 200 || string(body) != "ok" {
		t.Fatalf("healthz: %d %q", res.StatusCode, body)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)
	res, _ := f.do(t, http.MethodGet, "/v1/room-types", "", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: want 401, got %d", res.StatusCode)
	}
	res, _ = f.do(t, http.MethodGet, "/v1/room-types", "garbage", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: want 401, got %d", res.StatusCode)
	}
}

func TestUnknownRouteIsProblemJSON(t *testing.T) {
	f := newFixture(t)
	res, _ := f.do(t, http.MethodGet, "/nope", "", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
	res, _ = f.do(t, http.MethodPut, "/healthz", "", nil)
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", res.StatusCode)
	}
}

func TestCreateReservation_CapacityRejection(t *testing.T) {
	f := newFixture(t)
	tok := token(t, httpserver.RoleHotelAdmin, f.hotel.ID)

	res, body := f.do(t, http.MethodPost, "/v1/reservations", tok, map[string]any{
		"guestName": "Ayse", "roomTypeId": f.rt.ID, "checkIn": "2025-03-10", "checkOut": "2025-03-12", "rooms": 2,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("first booking: %d %s", res.StatusCode, body)
	}

	res, body = f.do(t, http.MethodPost, "/v1/reservations", tok, map[string]any{
		"guestName": "Mehmet", "roomTypeId": f.rt.ID, "checkIn": "2025-03-11", "checkOut": "2025-03-13",
	})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("overlapping booking: want 409, got %d %s", res.StatusCode, body)
	}
	var p struct {
		Night     string `json:"night"`
		Requested int    `json:"requested"`
		Remaining int    `json:"remaining"`
		Capacity  int    `json:"capacity"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Night != "2025-03-11" || p.Requested != 1 || p.Remaining != 0 || p.Capacity != 2 {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}

	// back-to-back stay starting on the previous check-out fits
	res, body = f.do(t, http.MethodPost, "/v1/reservations", tok, map[string]any{
		"guestName": "Mehmet", "roomTypeId": f.rt.ID, "checkIn": "2025-03-12", "checkOut": "2025-03-14",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("adjacent booking: %d %s", res.StatusCode, body)
	}
}

func TestCreateReservation_InvalidInput(t *testing.T) {
	f := newFixture(t)
	tok := token(t, httpserver.RoleHotelStaff, f.hotel.ID)

	cases := []map[string]any{
		{"guestName": "X", "roomTypeId": f.rt.ID, "checkIn": "2025-03-12", "checkOut": "2025-03-12"},
		{"guestName": "X", "roomTypeId": f.rt.ID, "checkIn": "2025-03-10", "checkOut": "2025-03-12", "rooms": -1},
		{"guestName": "X", "roomTypeId": f.rt.ID, "checkIn": "2025-03-10", "checkOut": "2025-03-12", "rooms": 0},
		{"guestName": "X", "roomTypeId": 999, "checkIn": "2025-03-10", "checkOut": "2025-03-12"},
		{"guestName": "X", "roomTypeId": f.rt.ID, "checkIn": "10/03/2025", "checkOut": "2025-03-12"},
	}
	for i, c := range cases {
		res, body := f.do(t, http.MethodPost, "/v1/reservations", tok, c)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: want 400, got %d %s", i, res.StatusCode, body)
		}
	}
}

func TestQuoteAndBulkInventory(t *testing.T) {
	f := newFixture(t)
	tok := token(t, httpserver.RoleHotelAdmin, f.hotel.ID)

	res, body := f.do(t, http.MethodPost, "/v1/inventory/bulk", tok, map[string]any{
		"roomTypeId": f.rt.ID, "start": "2025-04-01", "end": "2025-04-04", "allotment": 5, "price": 150,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bulk: %d %s", res.StatusCode, body)
	}
	var bulk app.BulkUpsertResult
	_ = json.Unmarshal(body, &bulk)
	if bulk.Days != 3 || bulk.Written != 3 || bulk.Partial {
		t.Fatalf("unexpected bulk result: %+v", bulk)
	}

	q := "/v1/availability/quote?roomType=" + strconv.FormatInt(f.rt.ID, 10) + "&start=2025-04-01&end=2025-04-03&rooms=4"
	res, body = f.do(t, http.MethodGet, q, tok, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("quote: %d %s", res.StatusCode, body)
	}
	var quote app.Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if !quote.Available || quote.Nights != 2 || quote.SuggestedTotalPrice != 1200 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if quote.PerNight[0].Allotment != 5 || quote.PerNight[0].Remaining != 5 {
		t.Fatalf("unexpected night: %+v", quote.PerNight[0])
	}

	res, body = f.do(t, http.MethodPost, "/v1/inventory/bulk", tok, map[string]any{
		"roomTypeId": f.rt.ID, "start": "2025-04-01", "end": "2025-04-04",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patch: want 400, got %d %s", res.StatusCode, body)
	}
}

func TestRoleAndHotelScoping(t *testing.T) {
	f := newFixture(t)
	staff := token(t, httpserver.RoleHotelStaff, f.hotel.ID)

	res, _ := f.do(t, http.MethodPost, "/v1/inventory/bulk", staff, map[string]any{
		"roomTypeId": f.rt.ID, "start": "2025-04-01", "end": "2025-04-02", "stopSell": true,
	})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("staff bulk: want 403, got %d", res.StatusCode)
	}

	res, _ = f.do(t, http.MethodGet, "/v1/room-types?hotelId=99", staff, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign hotel: want 403, got %d", res.StatusCode)
	}

	res, _ = f.do(t, http.MethodGet, "/v1/hotels", staff, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("hotel list for staff: want 403, got %d", res.StatusCode)
	}

	master := token(t, httpserver.RoleMaster, 0)
	res, _ = f.do(t, http.MethodGet, "/v1/room-types", master, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("master without hotelId: want 400, got %d", res.StatusCode)
	}
	res, body := f.do(t, http.MethodGet, "/v1/room-types?hotelId="+strconv.FormatInt(f.hotel.ID, 10), master, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("master with hotelId: %d %s", res.StatusCode, body)
	}
}

func TestGetHotel_ETag(t *testing.T) {
	f := newFixture(t)
	tok := token(t, httpserver.RoleHotelStaff, f.hotel.ID)
	path := "/v1/hotels/" + strconv.FormatInt(f.hotel.ID, 10)

	res, _ := f.do(t, http.MethodGet, path, tok, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get hotel: %d", res.StatusCode)
	}
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional get: %v", err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("want 304, got %d", res2.StatusCode)
	}
}

func TestReservationStatusAndDelete(t *testing.T) {
	f := newFixture(t)
	admin := token(t, httpserver.RoleHotelAdmin, f.hotel.ID)

	res, body := f.do(t, http.MethodPost, "/v1/reservations", admin, map[string]any{
		"guestName": "Ayse", "roomTypeId": f.rt.ID, "checkIn": "2025-06-01", "checkOut": "2025-06-03", "rooms": 2,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, body)
	}
	var created domain.Reservation
	_ = json.Unmarshal(body, &created)
	path := "/v1/reservations/" + strconv.FormatInt(created.ID, 10)

	res, body = f.do(t, http.MethodPatch, path+"/status", admin, map[string]any{"status": "cancelled"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cancel: %d %s", res.StatusCode, body)
	}

	// the freed rooms can be sold again
	res, body = f.do(t, http.MethodPost, "/v1/reservations", admin, map[string]any{
		"guestName": "Can", "roomTypeId": f.rt.ID, "checkIn": "2025-06-01", "checkOut": "2025-06-02", "rooms": 1,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("rebook: %d %s", res.StatusCode, body)
	}

	// reactivating the cancelled booking would oversell 2025-06-01
	res, body = f.do(t, http.MethodPatch, path+"/status", admin, map[string]any{"status": "confirmed"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("reactivate: want 409, got %d %s", res.StatusCode, body)
	}

	res, _ = f.do(t, http.MethodDelete, path, admin, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, _ = f.do(t, http.MethodGet, path, admin, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted: want 404, got %d", res.StatusCode)
	}

	res, body = f.do(t, http.MethodGet, "/v1/reservations?start=2025-06-01&end=2025-06-30", admin, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", res.StatusCode, body)
	}
	var page domain.ReservationsPage
	_ = json.Unmarshal(body, &page)
	if page.Total != 1 {
		t.Fatalf("want 1 reservation left, got %d", page.Total)
	}
}

func TestReservationGuestBindingAndCard(t *testing.T) {
	f := newFixture(t)
	staff := token(t, httpserver.RoleHotelStaff, f.hotel.ID)

	res, body := f.do(t, http.MethodPost, "/v1/reservations", staff, map[string]any{
		"roomTypeId": f.rt.ID, "checkIn": "2025-07-01", "checkOut": "2025-07-04", "totalPrice": 450,
		"guest": map[string]any{"name": "Selin Kaya", "email": "Selin@Example.com", "phone": "+905550001122"},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create with guest: %d %s", res.StatusCode, body)
	}
	var created domain.Reservation
	_ = json.Unmarshal(body, &created)
	if created.GuestID == nil || created.GuestName != "Selin Kaya" || created.Rooms != 1 {
		t.Fatalf("guest not bound: %+v", created)
	}

	// the same phone on a second booking reuses the guest
	res, body = f.do(t, http.MethodPost, "/v1/reservations", staff, map[string]any{
		"guestName": "S. Kaya", "roomTypeId": f.rt.ID, "checkIn": "2025-08-01", "checkOut": "2025-08-02",
		"guest": map[string]any{"name": "Selin Kaya", "phone": "+905550001122"},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("second booking: %d %s", res.StatusCode, body)
	}
	var second domain.Reservation
	_ = json.Unmarshal(body, &second)
	if second.GuestID == nil || *second.GuestID != *created.GuestID || second.GuestName != "S. Kaya" {
		t.Fatalf("returning guest not reused: %+v", second)
	}

	res, body = f.do(t, http.MethodGet, "/v1/guests/search?q=selin@", staff, nil)
	var found []domain.Guest
	_ = json.Unmarshal(body, &found)
	if res.StatusCode != http.StatusOK || len(found) != 1 || found[0].Email != "selin@example.com" {
		t.Fatalf("search: %d %s", res.StatusCode, body)
	}

	res, body = f.do(t, http.MethodGet, "/v1/guests/"+strconv.FormatInt(*created.GuestID, 10), staff, nil)
	var card domain.GuestCard
	_ = json.Unmarshal(body, &card)
	if res.StatusCode != http.StatusOK || card.Stats.Stays != 2 || card.Stats.TotalNights != 4 || card.Stats.TotalRevenue != 450 {
		t.Fatalf("card: %d %s", res.StatusCode, body)
	}

	res, body = f.do(t, http.MethodGet, "/v1/reservations?guest=kaya", staff, nil)
	var page domain.ReservationsPage
	_ = json.Unmarshal(body, &page)
	if res.StatusCode != http.StatusOK || page.Total != 2 {
		t.Fatalf("guest filter: %d %s", res.StatusCode, body)
	}

	res, body = f.do(t, http.MethodPost, "/v1/reservations", staff, map[string]any{
		"guestId": 9999, "roomTypeId": f.rt.ID, "checkIn": "2025-09-01", "checkOut": "2025-09-02",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown guest id: want 400, got %d %s", res.StatusCode, body)
	}
}
