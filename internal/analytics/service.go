package analytics

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/harvesthub/catalog-engine/model"
)

const maxEventsToKeep = 10000 // Keep last 10k events for performance

// Service records executed queries and summarizes them next to catalog statistics.
type Service struct {
	mutex     sync.RWMutex
	events    []model.QueryEvent
	maxEvents int
	now       func() time.Time
}

// NewService creates a new analytics service. maxEvents <= 0 keeps the last 10000 events.
func NewService(maxEvents int) *Service {
	if maxEvents <= 0 {
		maxEvents = maxEventsToKeep
	}
	return &Service{
		events:    make([]model.QueryEvent, 0),
		maxEvents: maxEvents,
		now:       time.Now,
	}
}

// TrackQuery records a query event. A zero timestamp is set to now.
func (s *Service) TrackQuery(event model.QueryEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > s.maxEvents {
		s.events = slices.Clone(s.events[len(s.events)-s.maxEvents:])
	}
}

// EventCount returns how many events are retained.
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// Dashboard combines the retained query events with the given catalog statistics.
func (s *Service) Dashboard(catalog model.CatalogStats) model.AnalyticsDashboard {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	last24h := filterEventsByTime(s.events, now.Add(-24*time.Hour))

	return model.AnalyticsDashboard{
		Catalog:         catalog,
		TotalQueries:    len(s.events),
		QueriesLast24h:  len(last24h),
		AvgResponseTime: calculateAvgResponseTime(s.events),
		QueryKinds:      kindUsage(s.events),
		GeneratedAt:     now,
	}
}

// filterEventsByTime returns events after the given time
func filterEventsByTime(events []model.QueryEvent, after time.Time) []model.QueryEvent {
	var filtered []model.QueryEvent
	for _, event := range events {
		if event.Timestamp.After(after) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateAvgResponseTime returns the mean response time in milliseconds.
func calculateAvgResponseTime(events []model.QueryEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return float64(total) / float64(len(events)) / float64(time.Millisecond)
}

// kindUsage aggregates events per query kind, most used first.
func kindUsage(events []model.QueryEvent) []model.KindUsage {
	byKind := make(map[string][]model.QueryEvent)
	for _, event := range events {
		byKind[event.Kind] = append(byKind[event.Kind], event)
	}

	usage := make([]model.KindUsage, 0, len(byKind))
	for kind, kindEvents := range byKind {
		u := model.KindUsage{
			Kind:            kind,
			Count:           len(kindEvents),
			AvgResponseTime: calculateAvgResponseTime(kindEvents),
		}
		for _, event := range kindEvents {
			if event.Failed {
				u.Failures++
			} else if event.ResultCount == 0 {
				u.EmptyResults++
			}
		}
		usage = append(usage, u)
	}

	slices.SortFunc(usage, func(a, b model.KindUsage) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return usage
}

// ComputeCatalogStats summarizes a snapshot. A nil snapshot gives zero stats.
func ComputeCatalogStats(snapshot *model.Snapshot) model.CatalogStats {
	if snapshot == nil {
		return model.CatalogStats{}
	}
	stats := model.CatalogStats{
		Version:    snapshot.Version,
		CapturedAt: snapshot.CapturedAt,
		ItemCount:  len(snapshot.Items),
	}
	if len(snapshot.Items) == 0 {
		return stats
	}

	stats.MinPricePerDay = math.Inf(1)
	stats.MaxPricePerDay = math.Inf(-1)
	var priceSum, ratingSum float64
	for _, item := range snapshot.Items {
		if item.IsAvailable() {
			stats.AvailableCount++
		}
		if item.HasLocation() {
			stats.LocatedCount++
		}
		if item.Rating != nil {
			stats.RatedCount++
			ratingSum += *item.Rating
		}
		stats.TotalRentalCount += item.RentalCountOr(0)

		priceSum += item.PricePerDay
		stats.MinPricePerDay = math.Min(stats.MinPricePerDay, item.PricePerDay)
		stats.MaxPricePerDay = math.Max(stats.MaxPricePerDay, item.PricePerDay)
	}

	stats.AvgPricePerDay = priceSum / float64(len(snapshot.Items))
	if stats.RatedCount > 0 {
		stats.AvgRating = ratingSum / float64(stats.RatedCount)
	}
	return stats
}
