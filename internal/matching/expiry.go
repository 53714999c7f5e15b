package matching

import (
	"time"

	"github.com/recares/dme-matcher/internal/domain"
)

// AgeInDays returns the whole number of days since the listing was submitted,
// or -1 when the timestamp is missing or in the future.
func AgeInDays(l domain.Listing, now time.Time) int {
	if l.SubmittedAt.IsZero() {
		return -1
	}
	age := now.Sub(l.SubmittedAt)
	if age < 0 {
		return -1
	}
	return int(age / (24 * time.Hour))
}

// DueForWarning returns the listings whose age is exactly WarningDay whole
// days, whose owner opted in and which are still active. The trigger window
// is a single day: a sweep that skips that day never warns the listing.
func (r Rules) DueForWarning(listings []domain.Listing, now time.Time) []domain.Listing {
	var out []domain.Listing
	for _, l := range listings {
		if AgeInDays(l, now) != r.WarningDay {
			continue
		}
		if !r.OptedIn(l) || l.Tracking.OptedOut() {
			continue
		}
		out = append(out, l)
	}
	return out
}
