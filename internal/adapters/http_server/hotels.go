package httpserver

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
)

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	out, err := h.Hotels.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []domain.Hotel{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var in domain.Hotel
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Hotels.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !canAccessHotel(r, id) {
		writeError(w, domain.ErrForbidden)
		return
	}
	resp, err := h.Hotels.GetHotel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(resp)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getHotel body")
	}
}

func (h *Handlers) updateHotel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !canAccessHotel(r, id) {
		writeError(w, domain.ErrForbidden)
		return
	}
	var p domain.HotelPatch
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Hotels.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
