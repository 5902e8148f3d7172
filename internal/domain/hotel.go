package domain

import "time"

type Hotel struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	City       string    `json:"city"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	Currency   string    `json:"currency"` // TRY|USD|EUR|GBP
	Timezone   string    `json:"timezone"`
	Active     bool      `json:"active"`
	AdminEmail string    `json:"adminEmail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HotelPatch carries the optional fields of a hotel update; nil means unchanged.
type HotelPatch struct {
	Name       *string `json:"name"`
	City       *string `json:"city"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	Currency   *string `json:"currency"`
	Timezone   *string `json:"timezone"`
	Active     *bool   `json:"active"`
	AdminEmail *string `json:"adminEmail"`
}
