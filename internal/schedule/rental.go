package schedule

import (
	"time"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
	"github.com/harvesthub/catalog-engine/model"
)

// Resolution is the outcome of resolving one conflict group.
type Resolution struct {
	Kept    model.Interval   `json:"kept"`
	Removed []model.Interval `json:"removed"`
}

// ResolveConflict keeps the highest-value interval of a conflict group.
// Equal values keep the earliest member of the group.
func ResolveConflict(group []model.Interval) (Resolution, error) {
	if len(group) == 0 {
		return Resolution{}, errors.NewValidationError("group", "must not be empty")
	}
	ranked, err := sorting.MergeSort(group, sorting.Reverse[model.Interval](func(a, b model.Interval) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	}))
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Kept: ranked[0], Removed: ranked[1:]}, nil
}

// RentalSchedule is the plan for one item's booking requests.
type RentalSchedule struct {
	ItemID       string             `json:"item_id"`
	Schedule     []model.Interval   `json:"schedule"`
	Conflicts    [][]model.Interval `json:"conflicts"`
	Resolutions  []Resolution       `json:"resolutions"`
	Utilization  time.Duration      `json:"utilization_ns"`
	TotalRevenue float64            `json:"total_revenue"`
	Weighted     bool               `json:"weighted"`
}

// OptimizeRentalSchedule plans the requests that target itemID. Requests
// without an item ID match any item, and an empty itemID plans every request as
// if it were for the same item. Weighted selection
// maximizes revenue; otherwise the number of bookings is maximized.
func OptimizeRentalSchedule(itemID string, requests []model.Interval, weighted bool) (RentalSchedule, error) {
	relevant := make([]model.Interval, 0, len(requests))
	for _, r := range requests {
		if itemID == "" || r.ItemID == "" || r.ItemID == itemID {
			relevant = append(relevant, r)
		}
	}

	plan := RentalSchedule{ItemID: itemID, Weighted: weighted, Resolutions: []Resolution{}}
	if weighted {
		sel, err := SelectWeighted(relevant)
		if err != nil {
			return RentalSchedule{}, err
		}
		plan.Schedule = sel.Intervals
	} else {
		sel, err := SelectGreedy(relevant)
		if err != nil {
			return RentalSchedule{}, err
		}
		plan.Schedule = sel
	}

	conflicts, err := DetectConflicts(relevant)
	if err != nil {
		return RentalSchedule{}, err
	}
	plan.Conflicts = conflicts
	for _, group := range conflicts {
		res, err := ResolveConflict(group)
		if err != nil {
			return RentalSchedule{}, err
		}
		plan.Resolutions = append(plan.Resolutions, res)
	}

	for _, iv := range plan.Schedule {
		plan.Utilization += iv.Duration()
		plan.TotalRevenue += iv.Value
	}
	return plan, nil
}

// TrailingSlotScore is the score given to the open-ended slot after the last booking.
const TrailingSlotScore = 80.0

// Slot is a proposed booking window.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Score float64   `json:"score"`
}

// FindBestSlot proposes a window of the given duration that starts no earlier
// than now and avoids existing bookings. Gaps that fit are scored
// gap/duration*100 so roomier gaps win; the slot after the last booking always
// fits and scores TrailingSlotScore. When no booking ends after now the slot
// starts at now with score 100. Equal scores keep the earliest slot.
func FindBestSlot(existing []model.Interval, duration time.Duration, now time.Time) (Slot, error) {
	if duration <= 0 {
		return Slot{}, errors.NewValidationError("duration", "must be positive")
	}
	if err := Validate(existing); err != nil {
		return Slot{}, err
	}

	sorted, err := sorting.MergeSort(existing, byStart)
	if err != nil {
		return Slot{}, err
	}

	var (
		candidates []Slot
		busy       bool
	)
	// cursor is the end of everything booked so far, never before now
	cursor := now
	for _, iv := range sorted {
		if !iv.End.After(cursor) {
			continue
		}
		if gap := iv.Start.Sub(cursor); gap >= duration {
			candidates = append(candidates, Slot{
				Start: cursor,
				End:   cursor.Add(duration),
				Score: float64(gap) / float64(duration) * 100,
			})
		}
		cursor = iv.End
		busy = true
	}
	if !busy {
		return Slot{Start: now, End: now.Add(duration), Score: 100}, nil
	}
	candidates = append(candidates, Slot{Start: cursor, End: cursor.Add(duration), Score: TrailingSlotScore})

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, nil
}
