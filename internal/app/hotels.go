package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"hotel_booking/internal/domain"
)

var currencies = []string{"TRY", "USD", "EUR", "GBP"}

type HotelService struct {
	repo     domain.HotelRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewHotelService accepts a nil cache.
func NewHotelService(r domain.HotelRepository, c domain.Cache, ttl time.Duration) *HotelService {
	return &HotelService{repo: r, cache: c, cacheTTL: ttl}
}

func hotelKey(id int64) string { return fmt.Sprintf("hotel:%d", id) }

// normalizeHotel upper-cases code and currency on every write.
func normalizeHotel(h *domain.Hotel) error {
	h.Code = strings.ToUpper(strings.TrimSpace(h.Code))
	h.Name = strings.TrimSpace(h.Name)
	h.Currency = strings.ToUpper(strings.TrimSpace(h.Currency))
	h.AdminEmail = strings.ToLower(strings.TrimSpace(h.AdminEmail))
	if h.Code == "" || h.Name == "" {
		return domain.Invalid("code and name are required")
	}
	if h.Currency == "" {
		h.Currency = "TRY"
	}
	if !slices.Contains(currencies, h.Currency) {
		return domain.Invalid("unsupported currency %q", h.Currency)
	}
	if h.Timezone == "" {
		h.Timezone = "Europe/Istanbul"
	}
	if _, err := time.LoadLocation(h.Timezone); err != nil {
		return domain.Invalid("unknown timezone %q", h.Timezone)
	}
	return nil
}

func (s *HotelService) Create(ctx context.Context, h domain.Hotel) (domain.Hotel, error) {
	h.ID = 0
	h.Active = true
	if err := normalizeHotel(&h); err != nil {
		return domain.Hotel{}, err
	}
	if err := s.repo.CreateHotel(ctx, &h); err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

func (s *HotelService) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	key := hotelKey(id)
	var h domain.Hotel
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &h); ok {
			return h, nil
		}
	}
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, h, int(s.cacheTTL.Seconds()))
	}
	return h, nil
}

func (s *HotelService) List(ctx context.Context) ([]domain.Hotel, error) {
	return s.repo.ListHotels(ctx)
}

func (s *HotelService) Update(ctx context.Context, id int64, p domain.HotelPatch) (domain.Hotel, error) {
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.City != nil {
		h.City = strings.TrimSpace(*p.City)
	}
	if p.Address != nil {
		h.Address = strings.TrimSpace(*p.Address)
	}
	if p.Phone != nil {
		h.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Currency != nil {
		h.Currency = *p.Currency
	}
	if p.Timezone != nil {
		h.Timezone = *p.Timezone
	}
	if p.Active != nil {
		h.Active = *p.Active
	}
	if p.AdminEmail != nil {
		h.AdminEmail = *p.AdminEmail
	}
	if err := normalizeHotel(&h); err != nil {
		return domain.Hotel{}, err
	}
	if err := s.repo.UpdateHotel(ctx, h); err != nil {
		return domain.Hotel{}, err
	}
	// evict before re-reading so the next GetHotel repopulates from the repo
	if s.cache != nil {
		_ = s.cache.Del(ctx, hotelKey(id))
	}
	return s.repo.GetHotel(ctx, id)
}
