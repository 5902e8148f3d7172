package domain

import "time"

type RoomType struct {
	ID               int64     `json:"id"`
	HotelID          int64     `json:"hotelId"`
	Code             string    `json:"code"` // STD, DLX...
	Name             string    `json:"name"`
	BasePrice        float64   `json:"basePrice"`
	CapacityAdults   int       `json:"capacityAdults"`
	CapacityChildren int       `json:"capacityChildren"`
	TotalRooms       int       `json:"totalRooms"` // physical inventory, the default allotment
	BedType          string    `json:"bedType"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type RoomTypePatch struct {
	Code             *string  `json:"code"`
	Name             *string  `json:"name"`
	BasePrice        *float64 `json:"basePrice"`
	CapacityAdults   *int     `json:"capacityAdults"`
	CapacityChildren *int     `json:"capacityChildren"`
	TotalRooms       *int     `json:"totalRooms"`
	BedType          *string  `json:"bedType"`
	Description      *string  `json:"description"`
}
