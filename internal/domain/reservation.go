package domain

import "time"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

var (
	Channels        = []string{"direct", "airbnb", "booking", "etstur"}
	PaymentMethods  = []string{"", "cash", "pos", "transfer", "online"}
	PaymentStatuses = []string{"unpaid", "partial", "paid"}
)

// Reservation occupies [CheckIn, CheckOut): the check-out date itself is free.
type Reservation struct {
	ID            int64             `json:"id"`
	HotelID       int64             `json:"hotelId"`
	RoomTypeID    *int64            `json:"roomTypeId,omitempty"` // nil: not counted against any allotment
	GuestID       *int64            `json:"guestId,omitempty"`
	GuestName     string            `json:"guestName"`
	CheckIn       time.Time         `json:"checkIn"`
	CheckOut      time.Time         `json:"checkOut"`
	Adults        int               `json:"adults"`
	Children      int               `json:"children"`
	Rooms         int               `json:"rooms"`
	Channel       string            `json:"channel"`
	Status        ReservationStatus `json:"status"`
	TotalPrice    float64           `json:"totalPrice"`
	DepositAmount float64           `json:"depositAmount"`
	PaymentMethod string            `json:"paymentMethod"`
	PaymentStatus string            `json:"paymentStatus"`
	ArrivalTime   string            `json:"arrivalTime"`
	Notes         string            `json:"notes"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// CountsAsDemand reports whether the reservation consumes allotment.
// Pending reservations hold rooms just like confirmed ones.
func (r Reservation) CountsAsDemand() bool {
	return r.RoomTypeID != nil && r.Status != StatusCancelled
}

// ReservationPatch is built by the transport layer; nil fields are unchanged.
type ReservationPatch struct {
	GuestName     *string
	GuestID       *int64
	RoomTypeID    *int64
	CheckIn       *time.Time
	CheckOut      *time.Time
	Adults        *int
	Children      *int
	Rooms         *int
	Channel       *string
	Status        *ReservationStatus
	TotalPrice    *float64
	DepositAmount *float64
	PaymentMethod *string
	PaymentStatus *string
	ArrivalTime   *string
	Notes         *string
}

// Occupancy is the slice of a reservation the availability check needs.
type Occupancy struct {
	ID       int64
	CheckIn  time.Time
	CheckOut time.Time
	Rooms    int
}

type ReservationFilter struct {
	HotelID int64 // 0: all hotels
	Start   *time.Time
	End     *time.Time
	Status  string
	Channel string
	Guest   string // substring of the guest name or the linked guest's name, email or phone
	Page    int
	Limit   int
}

type ReservationsPage struct {
	Items []Reservation `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
}
