package app

import (
	"context"
	"strings"

	"hotel_booking/internal/domain"
)

type RoomTypeService struct {
	repo         domain.RoomTypeRepository
	reservations domain.ReservationRepository
	locker       domain.Locker
}

// NewRoomTypeService takes the locker bookings use, so a delete cannot
// interleave with a reservation write on the same room type.
func NewRoomTypeService(r domain.RoomTypeRepository, res domain.ReservationRepository, l domain.Locker) *RoomTypeService {
	return &RoomTypeService{repo: r, reservations: res, locker: l}
}

func normalizeRoomType(rt *domain.RoomType) error {
	rt.Code = strings.ToUpper(strings.TrimSpace(rt.Code))
	rt.Name = strings.TrimSpace(rt.Name)
	rt.BedType = strings.TrimSpace(rt.BedType)
	if rt.Code == "" || rt.Name == "" {
		return domain.Invalid("code and name are required")
	}
	if rt.CapacityAdults == 0 {
		rt.CapacityAdults = 2
	}
	switch {
	case rt.BasePrice < 0:
		return domain.Invalid("basePrice must not be negative")
	case rt.TotalRooms < 0:
		return domain.Invalid("totalRooms must not be negative")
	case rt.CapacityAdults < 1:
		return domain.Invalid("capacityAdults must be at least 1")
	case rt.CapacityChildren < 0:
		return domain.Invalid("capacityChildren must not be negative")
	}
	return nil
}

func (s *RoomTypeService) List(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	return s.repo.ListRoomTypes(ctx, hotelID)
}

func (s *RoomTypeService) Get(ctx context.Context, hotelID, id int64) (domain.RoomType, error) {
	return s.repo.GetRoomType(ctx, hotelID, id)
}

func (s *RoomTypeService) Create(ctx context.Context, rt domain.RoomType) (domain.RoomType, error) {
	rt.ID = 0
	if rt.HotelID <= 0 {
		return domain.RoomType{}, domain.Invalid("hotel is required")
	}
	if err := normalizeRoomType(&rt); err != nil {
		return domain.RoomType{}, err
	}
	if err := s.repo.CreateRoomType(ctx, &rt); err != nil {
		return domain.RoomType{}, err
	}
	return rt, nil
}

// Update applies p. A new totalRooms only affects later availability checks;
// existing reservations are not re-validated.
func (s *RoomTypeService) Update(ctx context.Context, hotelID, id int64, p domain.RoomTypePatch) (domain.RoomType, error) {
	rt, err := s.repo.GetRoomType(ctx, hotelID, id)
	if err != nil {
		return domain.RoomType{}, err
	}
	if p.Code != nil {
		rt.Code = *p.Code
	}
	if p.Name != nil {
		rt.Name = *p.Name
	}
	if p.BasePrice != nil {
		rt.BasePrice = *p.BasePrice
	}
	if p.CapacityAdults != nil {
		rt.CapacityAdults = *p.CapacityAdults
	}
	if p.CapacityChildren != nil {
		rt.CapacityChildren = *p.CapacityChildren
	}
	if p.TotalRooms != nil {
		rt.TotalRooms = *p.TotalRooms
	}
	if p.BedType != nil {
		rt.BedType = *p.BedType
	}
	if p.Description != nil {
		rt.Description = *p.Description
	}
	if err := normalizeRoomType(&rt); err != nil {
		return domain.RoomType{}, err
	}
	if err := s.repo.UpdateRoomType(ctx, rt); err != nil {
		return domain.RoomType{}, err
	}
	return s.repo.GetRoomType(ctx, hotelID, id)
}

// Delete refuses while non-cancelled reservations reference the room type;
// otherwise its inventory rows go with it.
func (s *RoomTypeService) Delete(ctx context.Context, hotelID, id int64) error {
	if _, err := s.repo.GetRoomType(ctx, hotelID, id); err != nil {
		return err
	}
	held, unlock, err := s.locker.Lock(ctx, AvailabilityLockKey(hotelID, id))
	if err != nil {
		return err
	}
	defer unlock()

	busy, err := s.reservations.HasActiveReservations(held, hotelID, id)
	if err != nil {
		return err
	}
	if busy {
		return domain.ErrRoomTypeInUse
	}
	if err := context.Cause(held); err != nil {
		return err
	}
	return s.repo.DeleteRoomType(held, hotelID, id)
}
