package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

// AvailabilityEngine decides whether a stay fits the per-night allotment of
// a room type. It only reads; persisting the booking is the caller's job.
type AvailabilityEngine struct {
	roomTypes    domain.RoomTypeRepository
	inventory    domain.InventoryRepository
	reservations domain.ReservationRepository

	// allowUnbounded accepts any booking on a room type whose totalRooms is 0
	// and which has no inventory rows in the requested range.
	allowUnbounded bool
}

func NewAvailabilityEngine(rt domain.RoomTypeRepository, inv domain.InventoryRepository, res domain.ReservationRepository, allowUnbounded bool) *AvailabilityEngine {
	return &AvailabilityEngine{roomTypes: rt, inventory: inv, reservations: res, allowUnbounded: allowUnbounded}
}

type StayRequest struct {
	HotelID    int64
	RoomTypeID int64
	CheckIn    time.Time
	CheckOut   time.Time
	Rooms      int
	ExcludeID  int64 // reservation being edited, ignored as demand
}

// Check returns nil when the stay can be booked, a *domain.CapacityError
// naming the earliest night that cannot take it, or an input error.
func (e *AvailabilityEngine) Check(ctx context.Context, req StayRequest) error {
	if req.Rooms <= 0 {
		return domain.Invalid("rooms must be at least 1")
	}
	snap, err := e.snapshot(ctx, req)
	if err != nil {
		return err
	}
	if snap.unbounded && e.allowUnbounded {
		return nil
	}
	for _, night := range snap.nights {
		key := calendar.Key(night)
		capacity := snap.allotment(key)
		used := snap.demand[key]
		if used+req.Rooms > capacity {
			return &domain.CapacityError{
				Night:     night,
				Requested: req.Rooms,
				Remaining: max(capacity-used, 0),
				Capacity:  capacity,
			}
		}
	}
	return nil
}

// rangeSnapshot is everything read for one decision. Quote and Check both
// build on it so they cannot disagree.
type rangeSnapshot struct {
	roomType  domain.RoomType
	nights    []time.Time
	overrides map[string]*domain.InventoryDay
	demand    map[string]int
	unbounded bool
}

func (s rangeSnapshot) allotment(key string) int {
	return domain.EffectiveAllotment(s.roomType, s.overrides[key])
}

func (s rangeSnapshot) price(key string) float64 {
	return domain.EffectivePrice(s.roomType, s.overrides[key])
}

func (e *AvailabilityEngine) snapshot(ctx context.Context, req StayRequest) (rangeSnapshot, error) {
	ci, co := calendar.Day(req.CheckIn), calendar.Day(req.CheckOut)
	if !co.After(ci) {
		return rangeSnapshot{}, domain.Invalid("check-out must be after check-in")
	}
	rt, err := e.roomTypes.GetRoomType(ctx, req.HotelID, req.RoomTypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return rangeSnapshot{}, fmt.Errorf("%w: room type %d: %w", domain.ErrInvalidInput, req.RoomTypeID, err)
		}
		return rangeSnapshot{}, fmt.Errorf("load room type: %w", err)
	}

	rows, err := e.inventory.ListOverrides(ctx, req.HotelID, req.RoomTypeID, ci, co)
	if err != nil {
		return rangeSnapshot{}, fmt.Errorf("load inventory: %w", err)
	}
	overrides := make(map[string]*domain.InventoryDay, len(rows))
	for i := range rows {
		overrides[calendar.Key(rows[i].Date)] = &rows[i]
	}

	occ, err := e.reservations.FindOverlapping(ctx, req.HotelID, req.RoomTypeID, ci, co, req.ExcludeID)
	if err != nil {
		return rangeSnapshot{}, fmt.Errorf("load overlapping reservations: %w", err)
	}

	nights := calendar.NightsInRange(ci, co)
	return rangeSnapshot{
		roomType:  rt,
		nights:    nights,
		overrides: overrides,
		demand:    nightlyDemand(nights, occ),
		unbounded: rt.TotalRooms == 0 && len(overrides) == 0,
	}, nil
}

// nightlyDemand sums the rooms of every reservation per requested night.
// Nights of a reservation outside the requested range are ignored.
func nightlyDemand(nights []time.Time, occ []domain.Occupancy) map[string]int {
	demand := make(map[string]int, len(nights))
	for _, n := range nights {
		demand[calendar.Key(n)] = 0
	}
	for _, o := range occ {
		rooms := o.Rooms
		if rooms <= 0 {
			rooms = 1
		}
		for _, n := range calendar.NightsInRange(o.CheckIn, o.CheckOut) {
			key := calendar.Key(n)
			if _, ok := demand[key]; ok {
				demand[key] += rooms
			}
		}
	}
	return demand
}
