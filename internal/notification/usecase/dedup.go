package usecase

import (
	"context"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
)

// RecentlyNotified reports whether a sent attempt exists for the user and
// channel within the last withinDays days. Suppression is per channel, not per event.
func (s *Usecase) RecentlyNotified(ctx context.Context, userID int64, ch entity.Channel, withinDays int) (bool, error) {
	ctx, span := s.startSpan(ctx, "RecentlyNotified")
	defer span.End()

	if withinDays < 1 {
		withinDays = 1
	}

	since := s.clock.Now().AddDate(0, 0, -withinDays)
	return s.repoDB.HasSentSince(ctx, userID, ch, since)
}
