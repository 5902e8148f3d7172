package app

import (
	"context"
	"time"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

type QuoteNight struct {
	Date      time.Time `json:"date"`
	Allotment int       `json:"allotment"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Price     float64   `json:"price"`
	StopSell  bool      `json:"stopSell"`
}

type Quote struct {
	RoomTypeID          int64        `json:"roomTypeId"`
	Rooms               int          `json:"rooms"`
	Nights              int          `json:"nights"`
	PerNight            []QuoteNight `json:"remainingPerDay"`
	Available           bool         `json:"available"`
	Unbounded           bool         `json:"unbounded,omitempty"`
	SuggestedTotalPrice float64      `json:"suggestedTotalPrice"`
}

// QuoteService reports per-night availability and price without booking.
type QuoteService struct {
	engine *AvailabilityEngine
}

func NewQuoteService(e *AvailabilityEngine) *QuoteService {
	return &QuoteService{engine: e}
}

func (s *QuoteService) Quote(ctx context.Context, req StayRequest) (Quote, error) {
	if req.Rooms <= 0 {
		return Quote{}, domain.Invalid("rooms must be at least 1")
	}
	snap, err := s.engine.snapshot(ctx, req)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		RoomTypeID: req.RoomTypeID,
		Rooms:      req.Rooms,
		Nights:     len(snap.nights),
		PerNight:   make([]QuoteNight, 0, len(snap.nights)),
		Available:  true,
	}
	var perRoom float64
	for _, night := range snap.nights {
		key := calendar.Key(night)
		o := snap.overrides[key]
		allotment := snap.allotment(key)
		used := snap.demand[key]
		remaining := max(allotment-used, 0)
		if remaining < req.Rooms {
			q.Available = false
		}
		price := snap.price(key)
		perRoom += price
		q.PerNight = append(q.PerNight, QuoteNight{
			Date:      night,
			Allotment: allotment,
			Used:      used,
			Remaining: remaining,
			Price:     price,
			StopSell:  o != nil && o.StopSell,
		})
	}
	if snap.unbounded && s.engine.allowUnbounded {
		q.Available = true
		q.Unbounded = true
	}
	q.SuggestedTotalPrice = perRoom * float64(req.Rooms)
	return q, nil
}
