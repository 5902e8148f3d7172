package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hotel_booking/internal/app"
	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

// reservationRequest is the body of create and update. Absent fields are
// left unchanged on update and defaulted on create.
type reservationRequest struct {
	GuestName     *string              `json:"guestName"`
	GuestID       *int64               `json:"guestId"`
	Guest         *domain.GuestContact `json:"guest"`
	RoomTypeID    *int64               `json:"roomTypeId"`
	CheckIn       *string              `json:"checkIn"`
	CheckOut      *string              `json:"checkOut"`
	Adults        *int                 `json:"adults"`
	Children      *int                 `json:"children"`
	Rooms         *int                 `json:"rooms"`
	Channel       *string              `json:"channel"`
	Status        *string              `json:"status"`
	TotalPrice    *float64             `json:"totalPrice"`
	DepositAmount *float64             `json:"depositAmount"`
	PaymentMethod *string              `json:"paymentMethod"`
	PaymentStatus *string              `json:"paymentStatus"`
	ArrivalTime   *string              `json:"arrivalTime"`
	Notes         *string              `json:"notes"`
}

func parseDateField(name string, v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := calendar.Parse(*v)
	if err != nil {
		return nil, domain.Invalid("%s: %v", name, err)
	}
	return &t, nil
}

func (in reservationRequest) patch() (domain.ReservationPatch, error) {
	checkIn, err := parseDateField("checkIn", in.CheckIn)
	if err != nil {
		return domain.ReservationPatch{}, err
	}
	checkOut, err := parseDateField("checkOut", in.CheckOut)
	if err != nil {
		return domain.ReservationPatch{}, err
	}
	p := domain.ReservationPatch{
		GuestName:     in.GuestName,
		RoomTypeID:    in.RoomTypeID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Adults:        in.Adults,
		Children:      in.Children,
		Rooms:         in.Rooms,
		Channel:       in.Channel,
		TotalPrice:    in.TotalPrice,
		DepositAmount: in.DepositAmount,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
		ArrivalTime:   in.ArrivalTime,
		Notes:         in.Notes,
	}
	if in.Status != nil {
		st := domain.ReservationStatus(*in.Status)
		p.Status = &st
	}
	return p, nil
}

// bindGuest links the reservation to the guest named by guestId or the
// guest block; the guest's name fills in a missing guestName.
func (h *Handlers) bindGuest(ctx context.Context, hotelID int64, in reservationRequest, p *domain.ReservationPatch) error {
	g, err := h.Guests.Bind(ctx, hotelID, in.GuestID, in.Guest)
	if err != nil || g == nil {
		return err
	}
	p.GuestID = &g.ID
	if p.GuestName == nil || strings.TrimSpace(*p.GuestName) == "" {
		p.GuestName = &g.Name
	}
	return nil
}

// positiveInt parses an optional paging parameter; "" yields 0 (service default).
func positiveInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, domain.Invalid("page and limit must be positive integers")
	}
	return n, nil
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ReservationFilter{Status: q.Get("status"), Channel: q.Get("channel"), Guest: strings.TrimSpace(q.Get("guest"))}

	// master admins may list across hotels
	if p, ok := principalFrom(r.Context()); ok && p.Role == RoleMaster && q.Get("hotelId") == "" {
		f.HotelID = 0
	} else {
		hotelID, err := hotelScope(r)
		if err != nil {
			writeError(w, err)
			return
		}
		f.HotelID = hotelID
	}

	if q.Get("start") != "" {
		t, err := queryDate(r, "start")
		if err != nil {
			writeError(w, err)
			return
		}
		f.Start = &t
	}
	if q.Get("end") != "" {
		t, err := queryDate(r, "end")
		if err != nil {
			writeError(w, err)
			return
		}
		f.End = &t
	}
	var err error
	if f.Page, err = positiveInt(q.Get("page")); err != nil {
		writeError(w, err)
		return
	}
	if f.Limit, err = positiveInt(q.Get("limit")); err != nil {
		writeError(w, err)
		return
	}

	page, err := h.Reservations.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if page.Items == nil {
		page.Items = []domain.Reservation{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Reservations.Get(r.Context(), hotelID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in reservationRequest
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := in.patch()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.bindGuest(r.Context(), hotelID, in, &p); err != nil {
		writeError(w, err)
		return
	}
	res := app.ApplyReservationPatch(app.NewReservation(hotelID), p)
	out, err := h.Reservations.Create(r.Context(), res)
	observeBooking(err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) updateReservation(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in reservationRequest
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := in.patch()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.bindGuest(r.Context(), hotelID, in, &p); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Reservations.Update(r.Context(), hotelID, id, p)
	observeBooking(err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) setReservationStatus(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Reservations.SetStatus(r.Context(), hotelID, id, domain.ReservationStatus(in.Status))
	observeBooking(err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteReservation(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Reservations.Delete(r.Context(), hotelID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
