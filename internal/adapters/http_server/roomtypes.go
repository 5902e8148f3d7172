package httpserver

import (
	"net/http"

	"hotel_booking/internal/domain"
)

func (h *Handlers) listRoomTypes(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.RoomTypes.List(r.Context(), hotelID)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []domain.RoomType{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getRoomType(w http.ResponseWriter, r *http.Request) {
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
	out, err := h.RoomTypes.Get(r.Context(), hotelID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createRoomType(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in domain.RoomType
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.HotelID = hotelID
	out, err := h.RoomTypes.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) updateRoomType(w http.ResponseWriter, r *http.Request) {
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
	var p domain.RoomTypePatch
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.RoomTypes.Update(r.Context(), hotelID, id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteRoomType(w http.ResponseWriter, r *http.Request) {
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
	if err := h.RoomTypes.Delete(r.Context(), hotelID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
