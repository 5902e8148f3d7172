package domain

import (
	"context"
	"time"
)

type HotelRepository interface {
	CreateHotel(ctx context.Context, h *Hotel) error
	GetHotel(ctx context.Context, id int64) (Hotel, error)
	ListHotels(ctx context.Context) ([]Hotel, error)
	UpdateHotel(ctx context.Context, h Hotel) error
}

type RoomTypeRepository interface {
	CreateRoomType(ctx context.Context, rt *RoomType) error
	GetRoomType(ctx context.Context, hotelID, id int64) (RoomType, error)
	ListRoomTypes(ctx context.Context, hotelID int64) ([]RoomType, error)
	UpdateRoomType(ctx context.Context, rt RoomType) error
	// DeleteRoomType removes the room type together with its inventory rows.
	DeleteRoomType(ctx context.Context, hotelID, id int64) error
}

type InventoryRepository interface {
	// ListOverrides returns the override rows with start <= date < end, ordered by date.
	ListOverrides(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time) ([]InventoryDay, error)
	// UpsertInventoryDay writes only the non-nil fields of p for one night.
	UpsertInventoryDay(ctx context.Context, hotelID, roomTypeID int64, day time.Time, p InventoryPatch) error
}

type ReservationRepository interface {
	// Write paths
	CreateReservation(ctx context.Context, r *Reservation) error
	UpdateReservation(ctx context.Context, r Reservation) error
	DeleteReservation(ctx context.Context, hotelID, id int64) error

	// Read paths
	GetReservation(ctx context.Context, hotelID, id int64) (Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) (ReservationsPage, error)
	// FindOverlapping returns non-cancelled reservations of the room type with
	// checkIn < end AND checkOut > start, skipping excludeID when non-zero.
	FindOverlapping(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time, excludeID int64) ([]Occupancy, error)
	HasActiveReservations(ctx context.Context, hotelID, roomTypeID int64) (bool, error)
}

type GuestRepository interface {
	CreateGuest(ctx context.Context, g *Guest) error
	UpdateGuest(ctx context.Context, g Guest) error
	GetGuest(ctx context.Context, hotelID, id int64) (Guest, error)
	// FindGuestByContact returns the most recently updated guest of the hotel
	// whose email or phone equals a non-empty argument, or ErrNotFound.
	FindGuestByContact(ctx context.Context, hotelID int64, email, phone string) (Guest, error)
	// SearchGuests matches q case-insensitively inside name, email or phone,
	// most recently updated first.
	SearchGuests(ctx context.Context, hotelID int64, q string, limit int) ([]Guest, error)
	// ListGuestReservations returns the guest's reservations, latest check-in first.
	ListGuestReservations(ctx context.Context, hotelID, guestID int64) ([]Reservation, error)
}

// Store is everything a storage backend provides.
type Store interface {
	HotelRepository
	RoomTypeRepository
	InventoryRepository
	ReservationRepository
	GuestRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Locker serializes work per key. Lock returns ErrConflict when the key
// could not be acquired in time. The held context is derived from ctx and
// is cancelled on unlock, or with cause ErrLockLost once the hold can no
// longer be guaranteed; work done under the lock must stop then.
type Locker interface {
	Lock(ctx context.Context, key string) (held context.Context, unlock func(), err error)
}
