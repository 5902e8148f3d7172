package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

const (
	guestSearchMin   = 2
	guestSearchLimit = 20
)

type GuestService struct {
	repo domain.GuestRepository
	now  func() time.Time
}

func NewGuestService(r domain.GuestRepository) *GuestService {
	return &GuestService{repo: r, now: time.Now}
}

func normalizeContact(c domain.GuestContact) domain.GuestContact {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Country = strings.TrimSpace(c.Country)
	c.DocumentNo = strings.TrimSpace(c.DocumentNo)
	return c
}

// Search returns up to 20 guests of the hotel whose name, email or phone
// contains q. Queries shorter than two characters match nothing.
func (s *GuestService) Search(ctx context.Context, hotelID int64, q string) ([]domain.Guest, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < guestSearchMin {
		return []domain.Guest{}, nil
	}
	out, err := s.repo.SearchGuests(ctx, hotelID, q, guestSearchLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Guest{}
	}
	return out, nil
}

// Card summarizes a guest's non-cancelled stays. A stay counts at least
// one night; LastStay is the latest arrival up to today, NextStay the
// earliest one after it.
func (s *GuestService) Card(ctx context.Context, hotelID, id int64) (domain.GuestCard, error) {
	g, err := s.repo.GetGuest(ctx, hotelID, id)
	if err != nil {
		return domain.GuestCard{}, err
	}
	rs, err := s.repo.ListGuestReservations(ctx, hotelID, id)
	if err != nil {
		return domain.GuestCard{}, err
	}

	today := calendar.Day(s.now())
	card := domain.GuestCard{Guest: g}
	for i := range rs {
		r := rs[i]
		if r.Status == domain.StatusCancelled {
			continue
		}
		card.Stats.Stays++
		card.Stats.TotalNights += max(len(calendar.NightsInRange(r.CheckIn, r.CheckOut)), 1)
		card.Stats.TotalRevenue += r.TotalPrice

		// rs is ordered by check-in, latest first
		if r.CheckIn.After(today) {
			card.Stats.NextStay = &r
		} else if card.Stats.LastStay == nil {
			card.Stats.LastStay = &r
		}
	}
	return card, nil
}

// Bind resolves the guest a reservation write refers to. An explicit id
// must belong to the hotel. Otherwise a contact with a name is matched by
// email or phone and refreshed, or stored as a new guest. Neither given
// yields nil.
func (s *GuestService) Bind(ctx context.Context, hotelID int64, guestID *int64, c *domain.GuestContact) (*domain.Guest, error) {
	if guestID != nil {
		g, err := s.repo.GetGuest(ctx, hotelID, *guestID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("unknown guest %d", *guestID)
		}
		if err != nil {
			return nil, err
		}
		return &g, nil
	}
	if c == nil {
		return nil, nil
	}
	in := normalizeContact(*c)
	if in.Name == "" {
		return nil, nil
	}

	if in.Email != "" || in.Phone != "" {
		g, err := s.repo.FindGuestByContact(ctx, hotelID, in.Email, in.Phone)
		switch {
		case err == nil:
			mergeContact(&g, in)
			if err := s.repo.UpdateGuest(ctx, g); err != nil {
				return nil, err
			}
			log.Debug().Int64("hotel", hotelID).Int64("guest", g.ID).Msg("returning guest matched")
			return &g, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	g := domain.Guest{HotelID: hotelID}
	mergeContact(&g, in)
	if err := s.repo.CreateGuest(ctx, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// mergeContact copies the non-empty contact fields onto g.
func mergeContact(g *domain.Guest, c domain.GuestContact) {
	if c.Name != "" {
		g.Name = c.Name
	}
	if c.Email != "" {
		g.Email = c.Email
	}
	if c.Phone != "" {
		g.Phone = c.Phone
	}
	if c.Country != "" {
		g.Country = c.Country
	}
	if c.DocumentNo != "" {
		g.DocumentNo = c.DocumentNo
	}
}
