// Package memory is an in-process domain.Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

type invKey struct {
	hotel, roomType int64
	day             string
}

type Store struct {
	mu           sync.RWMutex
	nextID       int64
	hotels       map[int64]domain.Hotel
	roomTypes    map[int64]domain.RoomType
	inventory    map[invKey]domain.InventoryDay
	reservations map[int64]domain.Reservation
	guests       map[int64]domain.Guest
	now          func() time.Time
}

func New() *Store {
	return &Store{
		hotels:       map[int64]domain.Hotel{},
		roomTypes:    map[int64]domain.RoomType{},
		inventory:    map[invKey]domain.InventoryDay{},
		reservations: map[int64]domain.Reservation{},
		guests:       map[int64]domain.Guest{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ---- hotels ----

func (s *Store) CreateHotel(ctx context.Context, h *domain.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.hotels {
		if x.Code == h.Code {
			return domain.ErrDuplicate
		}
	}
	h.ID = s.id()
	h.CreatedAt, h.UpdatedAt = s.now(), s.now()
	s.hotels[h.ID] = *h
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

func (s *Store) ListHotels(ctx context.Context) ([]domain.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Hotel, 0, len(s.hotels))
	for _, h := range s.hotels {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateHotel(ctx context.Context, h domain.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.hotels[h.ID]
	if !ok {
		return domain.ErrNotFound
	}
	h.Code, h.CreatedAt, h.UpdatedAt = cur.Code, cur.CreatedAt, s.now()
	s.hotels[h.ID] = h
	return nil
}

// ---- room types ----

func (s *Store) CreateRoomType(ctx context.Context, rt *domain.RoomType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hotels[rt.HotelID]; !ok {
		return domain.ErrNotFound
	}
	for _, x := range s.roomTypes {
		if x.HotelID == rt.HotelID && x.Code == rt.Code {
			return domain.ErrDuplicate
		}
	}
	rt.ID = s.id()
	rt.CreatedAt, rt.UpdatedAt = s.now(), s.now()
	s.roomTypes[rt.ID] = *rt
	return nil
}

func (s *Store) GetRoomType(ctx context.Context, hotelID, id int64) (domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.roomTypes[id]
	if !ok || rt.HotelID != hotelID {
		return domain.RoomType{}, domain.ErrNotFound
	}
	return rt, nil
}

func (s *Store) ListRoomTypes(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RoomType
	for _, rt := range s.roomTypes {
		if rt.HotelID == hotelID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdateRoomType(ctx context.Context, rt domain.RoomType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.roomTypes[rt.ID]
	if !ok || cur.HotelID != rt.HotelID {
		return domain.ErrNotFound
	}
	for _, x := range s.roomTypes {
		if x.ID != rt.ID && x.HotelID == rt.HotelID && x.Code == rt.Code {
			return domain.ErrDuplicate
		}
	}
	rt.CreatedAt, rt.UpdatedAt = cur.CreatedAt, s.now()
	s.roomTypes[rt.ID] = rt
	return nil
}

func (s *Store) DeleteRoomType(ctx context.Context, hotelID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.roomTypes[id]
	if !ok || rt.HotelID != hotelID {
		return domain.ErrNotFound
	}
	for k := range s.inventory {
		if k.hotel == hotelID && k.roomType == id {
			delete(s.inventory, k)
		}
	}
	for rid, r := range s.reservations {
		if r.RoomTypeID != nil && *r.RoomTypeID == id {
			r.RoomTypeID = nil
			s.reservations[rid] = r
		}
	}
	delete(s.roomTypes, id)
	return nil
}

// ---- inventory ----

func (s *Store) ListOverrides(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time) ([]domain.InventoryDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, end = calendar.Day(start), calendar.Day(end)
	var out []domain.InventoryDay
	for k, d := range s.inventory {
		if k.hotel != hotelID || k.roomType != roomTypeID {
			continue
		}
		if d.Date.Before(start) || !d.Date.Before(end) {
			continue
		}
		out = append(out, cloneDay(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertInventoryDay(ctx context.Context, hotelID, roomTypeID int64, day time.Time, p domain.InventoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.roomTypes[roomTypeID]
	if !ok || rt.HotelID != hotelID {
		return domain.ErrNotFound
	}
	day = calendar.Day(day)
	k := invKey{hotel: hotelID, roomType: roomTypeID, day: calendar.Key(day)}
	d, ok := s.inventory[k]
	if !ok {
		d = domain.InventoryDay{HotelID: hotelID, RoomTypeID: roomTypeID, Date: day}
	}
	if p.Price != nil {
		v := *p.Price
		d.Price = &v
	}
	if p.Allotment != nil {
		v := *p.Allotment
		d.Allotment = &v
	}
	if p.StopSell != nil {
		d.StopSell = *p.StopSell
	}
	s.inventory[k] = d
	return nil
}

func cloneDay(d domain.InventoryDay) domain.InventoryDay {
	if d.Price != nil {
		v := *d.Price
		d.Price = &v
	}
	if d.Allotment != nil {
		v := *d.Allotment
		d.Allotment = &v
	}
	return d
}

// ---- reservations ----

func cloneRes(r domain.Reservation) domain.Reservation {
	if r.RoomTypeID != nil {
		v := *r.RoomTypeID
		r.RoomTypeID = &v
	}
	if r.GuestID != nil {
		v := *r.GuestID
		r.GuestID = &v
	}
	return r
}

func (s *Store) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hotels[r.HotelID]; !ok {
		return domain.ErrNotFound
	}
	r.ID = s.id()
	r.CreatedAt, r.UpdatedAt = s.now(), s.now()
	s.reservations[r.ID] = cloneRes(*r)
	return nil
}

func (s *Store) UpdateReservation(ctx context.Context, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[r.ID]
	if !ok || cur.HotelID != r.HotelID {
		return domain.ErrNotFound
	}
	r.CreatedAt, r.UpdatedAt = cur.CreatedAt, s.now()
	s.reservations[r.ID] = cloneRes(r)
	return nil
}

func (s *Store) DeleteReservation(ctx context.Context, hotelID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[id]
	if !ok || cur.HotelID != hotelID {
		return domain.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *Store) GetReservation(ctx context.Context, hotelID, id int64) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok || r.HotelID != hotelID {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return cloneRes(r), nil
}

func (s *Store) ListReservations(ctx context.Context, f domain.ReservationFilter) (domain.ReservationsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Reservation
	for _, r := range s.reservations {
		if f.HotelID != 0 && r.HotelID != f.HotelID {
			continue
		}
		if f.Status != "" && string(r.Status) != f.Status {
			continue
		}
		if f.Channel != "" && r.Channel != f.Channel {
			continue
		}
		if f.End != nil && r.CheckIn.After(calendar.Day(*f.End)) {
			continue
		}
		if f.Start != nil && r.CheckOut.Before(calendar.Day(*f.Start)) {
			continue
		}
		if f.Guest != "" && !s.guestMatches(r, f.Guest) {
			continue
		}
		all = append(all, cloneRes(r))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CheckIn.Equal(all[j].CheckIn) {
			return all[i].CheckIn.After(all[j].CheckIn)
		}
		return all[i].ID > all[j].ID
	})

	if f.Page < 1 {
		f.Page = 1
	}
	page := domain.ReservationsPage{Total: len(all), Page: f.Page}
	if f.Limit > 0 {
		page.Pages = (len(all) + f.Limit - 1) / f.Limit
		from := min((f.Page-1)*f.Limit, len(all))
		to := min(from+f.Limit, len(all))
		all = all[from:to]
	}
	page.Items = all
	return page, nil
}

func (s *Store) FindOverlapping(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time, excludeID int64) ([]domain.Occupancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Occupancy
	for _, r := range s.reservations {
		if r.HotelID != hotelID || r.RoomTypeID == nil || *r.RoomTypeID != roomTypeID {
			continue
		}
		if r.Status == domain.StatusCancelled || (excludeID != 0 && r.ID == excludeID) {
			continue
		}
		if !calendar.Overlaps(r.CheckIn, r.CheckOut, start, end) {
			continue
		}
		out = append(out, domain.Occupancy{ID: r.ID, CheckIn: r.CheckIn, CheckOut: r.CheckOut, Rooms: r.Rooms})
	}
	return out, nil
}

func (s *Store) HasActiveReservations(ctx context.Context, hotelID, roomTypeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.HotelID == hotelID && r.RoomTypeID != nil && *r.RoomTypeID == roomTypeID && r.Status != domain.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

// ---- guests ----

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func guestHas(g domain.Guest, q string) bool {
	return containsFold(g.Name, q) || containsFold(g.Email, q) || containsFold(g.Phone, q)
}

// guestMatches expects s.mu to be held.
func (s *Store) guestMatches(r domain.Reservation, q string) bool {
	if containsFold(r.GuestName, q) {
		return true
	}
	if r.GuestID == nil {
		return false
	}
	g, ok := s.guests[*r.GuestID]
	return ok && guestHas(g, q)
}

func (s *Store) CreateGuest(ctx context.Context, g *domain.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hotels[g.HotelID]; !ok {
		return domain.ErrNotFound
	}
	g.ID = s.id()
	g.CreatedAt, g.UpdatedAt = s.now(), s.now()
	s.guests[g.ID] = *g
	return nil
}

func (s *Store) UpdateGuest(ctx context.Context, g domain.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.guests[g.ID]
	if !ok || cur.HotelID != g.HotelID {
		return domain.ErrNotFound
	}
	g.CreatedAt, g.UpdatedAt = cur.CreatedAt, s.now()
	s.guests[g.ID] = g
	return nil
}

func (s *Store) GetGuest(ctx context.Context, hotelID, id int64) (domain.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[id]
	if !ok || g.HotelID != hotelID {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, nil
}

// guestsByRecency expects s.mu to be held.
func (s *Store) guestsByRecency(hotelID int64, keep func(domain.Guest) bool) []domain.Guest {
	var out []domain.Guest
	for _, g := range s.guests {
		if g.HotelID == hotelID && keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) FindGuestByContact(ctx context.Context, hotelID int64, email, phone string) (domain.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.guestsByRecency(hotelID, func(g domain.Guest) bool {
		return (email != "" && g.Email == email) || (phone != "" && g.Phone == phone)
	})
	if len(found) == 0 {
		return domain.Guest{}, domain.ErrNotFound
	}
	return found[0], nil
}

func (s *Store) SearchGuests(ctx context.Context, hotelID int64, q string, limit int) ([]domain.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.guestsByRecency(hotelID, func(g domain.Guest) bool { return guestHas(g, q) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListGuestReservations(ctx context.Context, hotelID, guestID int64) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Reservation
	for _, r := range s.reservations {
		if r.HotelID == hotelID && r.GuestID != nil && *r.GuestID == guestID {
			out = append(out, cloneRes(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckIn.After(out[j].CheckIn)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

var _ domain.Store = (*Store)(nil)
