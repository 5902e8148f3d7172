package domain

import "time"

// InventoryDay is a per-night override for one room type. A nil Price or
// Allotment means the room type's default applies for that night.
type InventoryDay struct {
	HotelID    int64     `json:"hotelId"`
	RoomTypeID int64     `json:"roomTypeId"`
	Date       time.Time `json:"date"`
	Price      *float64  `json:"price,omitempty"`
	Allotment  *int      `json:"allotment,omitempty"`
	StopSell   bool      `json:"stopSell"`
}

// InventoryPatch lists the fields a bulk upsert sets; nil fields are left untouched.
type InventoryPatch struct {
	Price     *float64 `json:"price"`
	Allotment *int     `json:"allotment"`
	StopSell  *bool    `json:"stopSell"`
}

func (p InventoryPatch) Empty() bool {
	return p.Price == nil && p.Allotment == nil && p.StopSell == nil
}

// EffectiveAllotment is the number of rooms sellable on a night. A nil
// override falls back to the room type's physical inventory.
func EffectiveAllotment(rt RoomType, o *InventoryDay) int {
	if o == nil {
		return rt.TotalRooms
	}
	if o.StopSell {
		return 0
	}
	if o.Allotment != nil {
		return *o.Allotment
	}
	return rt.TotalRooms
}

func EffectivePrice(rt RoomType, o *InventoryDay) float64 {
	if o != nil && o.Price != nil {
		return *o.Price
	}
	return rt.BasePrice
}
