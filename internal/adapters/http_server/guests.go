package httpserver

import "net/http"

func (h *Handlers) searchGuests(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Guests.Search(r.Context(), hotelID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) guestCard(w http.ResponseWriter, r *http.Request) {
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
	card, err := h.Guests.Card(r.Context(), hotelID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}
