package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

type ReservationService struct {
	repo    domain.ReservationRepository
	engine  *AvailabilityEngine
	locker  domain.Locker
	retries int
}

func NewReservationService(r domain.ReservationRepository, e *AvailabilityEngine, l domain.Locker, retries int) *ReservationService {
	if retries < 0 {
		retries = 0
	}
	return &ReservationService{repo: r, engine: e, locker: l, retries: retries}
}

// NormalizeReservation fills defaults and validates a reservation. Every
// write path runs it right before persisting. Rooms has no default here:
// callers building a new reservation start from NewReservation.
func NormalizeReservation(r *domain.Reservation) error {
	if r.HotelID <= 0 {
		return domain.Invalid("hotel is required")
	}
	if r.RoomTypeID != nil && *r.RoomTypeID <= 0 {
		return domain.Invalid("invalid room type id %d", *r.RoomTypeID)
	}
	if r.GuestID != nil && *r.GuestID <= 0 {
		return domain.Invalid("invalid guest id %d", *r.GuestID)
	}
	r.GuestName = strings.TrimSpace(r.GuestName)
	if r.GuestName == "" {
		return domain.Invalid("guest name is required")
	}

	r.CheckIn, r.CheckOut = calendar.Day(r.CheckIn), calendar.Day(r.CheckOut)
	if !r.CheckOut.After(r.CheckIn) {
		return domain.Invalid("check-out must be after check-in")
	}

	if r.Rooms <= 0 {
		return domain.Invalid("rooms must be at least 1, got %d", r.Rooms)
	}
	if r.Adults < 0 || r.Children < 0 {
		return domain.Invalid("adults and children must not be negative")
	}
	if r.TotalPrice < 0 || r.DepositAmount < 0 {
		return domain.Invalid("amounts must not be negative")
	}

	if r.Status == "" {
		r.Status = domain.StatusConfirmed
	}
	if !r.Status.Valid() {
		return domain.Invalid("unknown status %q", r.Status)
	}
	r.Channel = strings.ToLower(strings.TrimSpace(r.Channel))
	if r.Channel == "" {
		r.Channel = "direct"
	}
	if !slices.Contains(domain.Channels, r.Channel) {
		return domain.Invalid("unknown channel %q", r.Channel)
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = "unpaid"
	}
	if !slices.Contains(domain.PaymentStatuses, r.PaymentStatus) {
		return domain.Invalid("unknown payment status %q", r.PaymentStatus)
	}
	if !slices.Contains(domain.PaymentMethods, r.PaymentMethod) {
		return domain.Invalid("unknown payment method %q", r.PaymentMethod)
	}
	r.ArrivalTime = strings.TrimSpace(r.ArrivalTime)
	return nil
}

// NewReservation is the starting point of a create request: one room, with
// the remaining defaults filled by NormalizeReservation.
func NewReservation(hotelID int64) domain.Reservation {
	return domain.Reservation{HotelID: hotelID, Rooms: 1}
}

func (s *ReservationService) Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	r.ID = 0
	if err := NormalizeReservation(&r); err != nil {
		return domain.Reservation{}, err
	}
	err := s.reserve(ctx, r, 0, func(ctx context.Context) error {
		return s.repo.CreateReservation(ctx, &r)
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return r, nil
}

func (s *ReservationService) Get(ctx context.Context, hotelID, id int64) (domain.Reservation, error) {
	return s.repo.GetReservation(ctx, hotelID, id)
}

func (s *ReservationService) List(ctx context.Context, f domain.ReservationFilter) (domain.ReservationsPage, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return s.repo.ListReservations(ctx, f)
}

// Update merges p into the stored reservation. The stay is re-validated
// against availability, ignoring the reservation itself, only when the
// room type, dates, room count or a reactivation change its demand.
func (s *ReservationService) Update(ctx context.Context, hotelID, id int64, p domain.ReservationPatch) (domain.Reservation, error) {
	cur, err := s.repo.GetReservation(ctx, hotelID, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	next := ApplyReservationPatch(cur, p)
	return s.save(ctx, cur, next)
}

func (s *ReservationService) SetStatus(ctx context.Context, hotelID, id int64, st domain.ReservationStatus) (domain.Reservation, error) {
	if !st.Valid() {
		return domain.Reservation{}, domain.Invalid("unknown status %q", st)
	}
	cur, err := s.repo.GetReservation(ctx, hotelID, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	next := cur
	next.Status = st
	return s.save(ctx, cur, next)
}

func (s *ReservationService) Delete(ctx context.Context, hotelID, id int64) error {
	return s.repo.DeleteReservation(ctx, hotelID, id)
}

func (s *ReservationService) save(ctx context.Context, cur, next domain.Reservation) (domain.Reservation, error) {
	next.ID, next.HotelID, next.CreatedAt = cur.ID, cur.HotelID, cur.CreatedAt
	if err := NormalizeReservation(&next); err != nil {
		return domain.Reservation{}, err
	}
	write := func(ctx context.Context) error { return s.repo.UpdateReservation(ctx, next) }

	var err error
	if demandGrows(cur, next) {
		err = s.reserve(ctx, next, cur.ID, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	return s.repo.GetReservation(ctx, next.HotelID, next.ID)
}

// demandGrows reports whether next could take a night that cur did not hold.
func demandGrows(cur, next domain.Reservation) bool {
	if !next.CountsAsDemand() {
		return false
	}
	if !cur.CountsAsDemand() || *cur.RoomTypeID != *next.RoomTypeID {
		return true
	}
	return next.Rooms > cur.Rooms ||
		next.CheckIn.Before(cur.CheckIn) ||
		next.CheckOut.After(cur.CheckOut)
}

// reserve runs check-then-write while holding the lock of the room type, so
// no two writers can both pass the capacity check for the same night. Lock
// conflicts rerun the whole sequence.
func (s *ReservationService) reserve(ctx context.Context, r domain.Reservation, excludeID int64, write func(context.Context) error) error {
	if !r.CountsAsDemand() {
		return write(ctx)
	}
	req := StayRequest{
		HotelID:    r.HotelID,
		RoomTypeID: *r.RoomTypeID,
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		Rooms:      r.Rooms,
		ExcludeID:  excludeID,
	}
	key := AvailabilityLockKey(r.HotelID, *r.RoomTypeID)
	logger := log.With().Str("booking_attempt", uuid.NewString()).Str("key", key).Logger()

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.reserveOnce(ctx, key, req, write)
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
		logger.Warn().Int("attempt", attempt+1).Msg("availability lock busy, retrying")
		if attempt < s.retries && !sleepCtx(ctx, backoff(attempt)) {
			return ctx.Err()
		}
	}

	var capErr *domain.CapacityError
	if errors.As(err, &capErr) {
		logger.Info().
			Int64("hotel", req.HotelID).
			Int64("room_type", req.RoomTypeID).
			Str("night", calendar.Key(capErr.Night)).
			Int("requested", capErr.Requested).
			Int("remaining", capErr.Remaining).
			Msg("booking rejected")
	}
	return err
}

func (s *ReservationService) reserveOnce(ctx context.Context, key string, req StayRequest, write func(context.Context) error) error {
	held, unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.engine.Check(held, req); err != nil {
		return heldErr(held, err)
	}
	// the check is only valid while nobody else can hold the key
	if err := context.Cause(held); err != nil {
		return err
	}
	if err := write(held); err != nil {
		return fmt.Errorf("persist reservation: %w", heldErr(held, err))
	}
	return nil
}

// heldErr reports a lost lease instead of the cancellation it caused.
func heldErr(held context.Context, err error) error {
	if cause := context.Cause(held); errors.Is(cause, domain.ErrLockLost) {
		return cause
	}
	return err
}

func AvailabilityLockKey(hotelID, roomTypeID int64) string {
	return fmt.Sprintf("avail:%d:%d", hotelID, roomTypeID)
}

// ApplyReservationPatch copies the non-nil fields of p onto r.
func ApplyReservationPatch(r domain.Reservation, p domain.ReservationPatch) domain.Reservation {
	if p.GuestName != nil {
		r.GuestName = *p.GuestName
	}
	if p.GuestID != nil {
		id := *p.GuestID
		r.GuestID = &id
	}
	if p.RoomTypeID != nil {
		id := *p.RoomTypeID
		r.RoomTypeID = &id
	}
	if p.CheckIn != nil {
		r.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		r.CheckOut = *p.CheckOut
	}
	if p.Adults != nil {
		r.Adults = *p.Adults
	}
	if p.Children != nil {
		r.Children = *p.Children
	}
	if p.Rooms != nil {
		r.Rooms = *p.Rooms
	}
	if p.Channel != nil {
		r.Channel = *p.Channel
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.TotalPrice != nil {
		r.TotalPrice = *p.TotalPrice
	}
	if p.DepositAmount != nil {
		r.DepositAmount = *p.DepositAmount
	}
	if p.PaymentMethod != nil {
		r.PaymentMethod = *p.PaymentMethod
	}
	if p.PaymentStatus != nil {
		r.PaymentStatus = *p.PaymentStatus
	}
	if p.ArrivalTime != nil {
		r.ArrivalTime = *p.ArrivalTime
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}
