package domain

import "time"

// Guest is a hotel-scoped guest profile. Email and phone identify a
// returning guest when a reservation carries contact details.
type Guest struct {
	ID             int64     `json:"id"`
	HotelID        int64     `json:"hotelId"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Country        string    `json:"country,omitempty"`
	DocumentNo     string    `json:"documentNo,omitempty"`
	VIP            bool      `json:"vip"`
	Blacklist      bool      `json:"blacklist"`
	MarketingOptIn bool      `json:"marketingOptIn"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// GuestContact is the guest block a reservation write may carry.
type GuestContact struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	DocumentNo string `json:"documentNo"`
}

type GuestStats struct {
	Stays        int          `json:"stays"`
	TotalNights  int          `json:"totalNights"`
	TotalRevenue float64      `json:"totalRevenue"`
	LastStay     *Reservation `json:"lastStay"`
	NextStay     *Reservation `json:"nextStay"`
}

// GuestCard is a guest together with a summary of their stays.
type GuestCard struct {
	Guest Guest      `json:"guest"`
	Stats GuestStats `json:"stats"`
}
