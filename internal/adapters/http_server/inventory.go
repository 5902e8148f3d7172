package httpserver

import (
	"net/http"
	"strconv"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/app"
	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

type bulkInventoryRequest struct {
	RoomTypeID int64    `json:"roomTypeId"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Price      *float64 `json:"price"`
	Allotment  *int     `json:"allotment"`
	StopSell   *bool    `json:"stopSell"`
}

func (h *Handlers) listInventory(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	roomTypeID, err := queryInt64(r, "roomType")
	if err != nil {
		writeError(w, err)
		return
	}
	start, err := queryDate(r, "start")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Inventory.List(r.Context(), hotelID, roomTypeID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []domain.InventoryDay{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) bulkInventory(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in bulkInventoryRequest
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.RoomTypeID <= 0 {
		writeError(w, domain.Invalid("roomTypeId is required"))
		return
	}
	start, err := calendar.Parse(in.Start)
	if err != nil {
		writeError(w, domain.Invalid("start: %v", err))
		return
	}
	end, err := calendar.Parse(in.End)
	if err != nil {
		writeError(w, domain.Invalid("end: %v", err))
		return
	}

	res, err := h.Inventory.BulkUpsert(r.Context(), app.BulkUpsertRequest{
		HotelID:    hotelID,
		RoomTypeID: in.RoomTypeID,
		Start:      start,
		End:        end,
		Patch:      domain.InventoryPatch{Price: in.Price, Allotment: in.Allotment, StopSell: in.StopSell},
	})
	observability.ObserveInventory(res.Written, res.Failed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	hotelID, err := hotelScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	roomTypeID, err := queryInt64(r, "roomType")
	if err != nil {
		writeError(w, err)
		return
	}
	start, err := queryDate(r, "start")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		writeError(w, err)
		return
	}
	rooms := 1
	if v := r.URL.Query().Get("rooms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, domain.Invalid("rooms must be an integer"))
			return
		}
		rooms = n
	}

	q, err := h.Quotes.Quote(r.Context(), app.StayRequest{
		HotelID:    hotelID,
		RoomTypeID: roomTypeID,
		CheckIn:    start,
		CheckOut:   end,
		Rooms:      rooms,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
