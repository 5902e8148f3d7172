package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/calendar"
	"hotel_booking/internal/domain"
)

type InventoryService struct {
	roomTypes domain.RoomTypeRepository
	inventory domain.InventoryRepository
	workers   int
}

func NewInventoryService(rt domain.RoomTypeRepository, inv domain.InventoryRepository, workers int) *InventoryService {
	if workers <= 0 {
		workers = 4
	}
	return &InventoryService{roomTypes: rt, inventory: inv, workers: workers}
}

type BulkUpsertRequest struct {
	HotelID    int64
	RoomTypeID int64
	Start      time.Time
	End        time.Time
	Patch      domain.InventoryPatch
}

// BulkUpsertResult counts nights; Partial is set when some but not all
// nights were written.
type BulkUpsertResult struct {
	Days    int  `json:"days"`
	Written int  `json:"written"`
	Failed  int  `json:"failed"`
	Partial bool `json:"partial"`
}

func (s *InventoryService) List(ctx context.Context, hotelID, roomTypeID int64, start, end time.Time) ([]domain.InventoryDay, error) {
	start, end = calendar.Day(start), calendar.Day(end)
	if !end.After(start) {
		return nil, domain.Invalid("end must be after start")
	}
	return s.inventory.ListOverrides(ctx, hotelID, roomTypeID, start, end)
}

// BulkUpsert writes every night of [Start, End) as an independent upsert.
// Partial completion is reported through the result; an error is returned
// only when the input is invalid or no night could be written.
func (s *InventoryService) BulkUpsert(ctx context.Context, req BulkUpsertRequest) (BulkUpsertResult, error) {
	if err := validatePatch(req.Patch); err != nil {
		return BulkUpsertResult{}, err
	}
	nights := calendar.NightsInRange(req.Start, req.End)
	if len(nights) == 0 {
		return BulkUpsertResult{}, domain.Invalid("end must be after start")
	}
	if _, err := s.roomTypes.GetRoomType(ctx, req.HotelID, req.RoomTypeID); err != nil {
		return BulkUpsertResult{}, err
	}

	var (
		written  atomic.Int64
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(s.workers))
	for _, night := range nights {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(day time.Time) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.inventory.UpsertInventoryDay(ctx, req.HotelID, req.RoomTypeID, day, req.Patch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("upsert %s: %w", calendar.Key(day), err)
				}
				mu.Unlock()
				return
			}
			written.Add(1)
		}(night)
	}
	wg.Wait()

	res := BulkUpsertResult{Days: len(nights), Written: int(written.Load())}
	res.Failed = res.Days - res.Written
	if res.Written == 0 {
		return res, fmt.Errorf("inventory bulk upsert: %w", firstErr)
	}
	if res.Failed > 0 {
		res.Partial = true
		log.Warn().
			Int64("hotel", req.HotelID).
			Int64("room_type", req.RoomTypeID).
			Int("written", res.Written).
			Int("failed", res.Failed).
			Err(firstErr).
			Msg("inventory bulk upsert partially applied")
	}
	return res, nil
}

func validatePatch(p domain.InventoryPatch) error {
	if p.Empty() {
		return domain.Invalid("one of price, allotment or stopSell is required")
	}
	if p.Price != nil && *p.Price < 0 {
		return domain.Invalid("price must not be negative")
	}
	if p.Allotment != nil && *p.Allotment < 0 {
		return domain.Invalid("allotment must not be negative")
	}
	return nil
}
