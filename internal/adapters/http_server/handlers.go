// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/app"
	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

type Handlers struct {
	Hotels       *app.HotelService
	RoomTypes    *app.RoomTypeService
	Inventory    *app.InventoryService
	Quotes       *app.QuoteService
	Reservations *app.ReservationService
	Guests       *app.GuestService

	JWTSecret  []byte
	BookingRPS int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// capacity rejections only
	Night     string `json:"night,omitempty"`
	Requested *int   `json:"requested,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
	Capacity  *int   `json:"capacity,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(Auth(h.JWTSecret))
		admins := RequireRole(RoleMaster, RoleHotelAdmin)

		r.With(RequireRole(RoleMaster)).Get("/hotels", h.listHotels)
		r.With(RequireRole(RoleMaster)).Post("/hotels", h.createHotel)
		r.Get("/hotels/{id}", h.getHotel)
		r.With(admins).Patch("/hotels/{id}", h.updateHotel)

		r.Get("/room-types", h.listRoomTypes)
		r.Get("/room-types/{id}", h.getRoomType)
		r.With(admins).Post("/room-types", h.createRoomType)
		r.With(admins).Patch("/room-types/{id}", h.updateRoomType)
		r.With(admins).Delete("/room-types/{id}", h.deleteRoomType)

		r.Get("/inventory", h.listInventory)
		r.With(admins).Post("/inventory/bulk", h.bulkInventory)
		r.Get("/availability/quote", h.quote)

		limited := RateLimit(h.BookingRPS)
		r.Get("/reservations", h.listReservations)
		r.With(limited).Post("/reservations", h.createReservation)
		r.Get("/reservations/{id}", h.getReservation)
		r.With(limited).Patch("/reservations/{id}", h.updateReservation)
		r.With(limited).Patch("/reservations/{id}/status", h.setReservationStatus)
		r.With(admins).Delete("/reservations/{id}", h.deleteReservation)

		r.Get("/guests/search", h.searchGuests)
		r.Get("/guests/{id}", h.guestCard)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &capErr):
		req, rem, total := capErr.Requested, capErr.Remaining, capErr.Capacity
		writeProblemBody(w, problem{
			Type:      "about:blank",
			Title:     "Insufficient allotment",
			Status:    http.StatusConflict,
			Detail:    capErr.Error(),
			Night:     calendar.Key(capErr.Night),
			Requested: &req,
			Remaining: &rem,
			Capacity:  &total,
		})
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid input", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		writeProblem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, domain.ErrRoomTypeInUse):
		writeProblem(w, http.StatusConflict, "Room type in use", err.Error())
	case errors.Is(err, domain.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusServiceUnavailable, "Busy", "concurrent booking in progress, retry")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// bookingOutcome labels a reservation write for the decisions counter.
func bookingOutcome(err error) string {
	var capErr *domain.CapacityError
	switch {
	case err == nil:
		return "accepted"
	case errors.As(err, &capErr):
		return "rejected"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("malformed JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id must be a positive number")
	}
	return id, nil
}

func queryInt64(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, domain.Invalid("%s is required", key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.Invalid("%s must be a positive number", key)
	}
	return n, nil
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, domain.Invalid("%s is required", key)
	}
	t, err := calendar.Parse(v)
	if err != nil {
		return time.Time{}, domain.Invalid("%s: %v", key, err)
	}
	return t, nil
}

// hotelScope resolves the hotel a request works on. Hotel users are pinned to
// their own hotel; master admins name it with ?hotelId.
func hotelScope(r *http.Request) (int64, error) {
	p, ok := principalFrom(r.Context())
	if !ok {
		return 0, domain.ErrForbidden
	}
	if p.Role != RoleMaster {
		if q := r.URL.Query().Get("hotelId"); q != "" && q != strconv.FormatInt(p.HotelID, 10) {
			return 0, domain.ErrForbidden
		}
		return p.HotelID, nil
	}
	return queryInt64(r, "hotelId")
}

// canAccessHotel guards /hotels/{id}.
func canAccessHotel(r *http.Request, id int64) bool {
	p, ok := principalFrom(r.Context())
	return ok && (p.Role == RoleMaster || p.HotelID == id)
}

func observeBooking(err error) {
	observability.ObserveBooking(bookingOutcome(err))
}
