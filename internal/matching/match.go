package matching

import (
	"strings"
	"time"

	"github.com/recares/dme-matcher/internal/domain"
)

// Default rule values.
const (
	DefaultFreshnessDays = 90
	DefaultWarningDay    = 83
	DefaultOptInValue    = "Yes - I would like to receive notifications"
)

// Rules holds the tunable parameters of the compatibility predicate and the
// expiration sweep.
type Rules struct {
	// FreshnessWindow is the inclusive maximum age of a matchable listing.
	FreshnessWindow time.Duration
	// WarningDay is the whole-day age at which the expiration warning fires.
	WarningDay int
	// OptInValue is the affirmative answer in the preference column.
	OptInValue string
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		FreshnessWindow: DefaultFreshnessDays * 24 * time.Hour,
		WarningDay:      DefaultWarningDay,
		OptInValue:      DefaultOptInValue,
	}
}

// FindMatches returns, in scan order, every listing other than excludeRow
// whose item normalizes to item, whose action is target, which is no older
// than the freshness window and which has not opted out.
func (r Rules) FindMatches(listings []domain.Listing, item string, target domain.Action, excludeRow int, now time.Time) []domain.Listing {
	key := Normalize(item)
	if key == "" || target == domain.ActionUnknown {
		return nil
	}

	var out []domain.Listing
	for _, l := range listings {
		if l.Row == excludeRow {
			continue
		}
		if l.Action != target || Normalize(l.Item()) != key {
			continue
		}
		if l.AgeAt(now) > r.FreshnessWindow {
			continue
		}
		if l.Tracking.OptedOut() {
			continue
		}
		out = append(out, l)
	}
	return out
}

// MatchesFor runs FindMatches from the point of view of l.
func (r Rules) MatchesFor(listings []domain.Listing, l domain.Listing, now time.Time) []domain.Listing {
	return r.FindMatches(listings, l.Item(), l.Action.Opposite(), l.Row, now)
}

// OptedIn reports whether the listing owner asked for notifications.
func (r Rules) OptedIn(l domain.Listing) bool {
	return r.OptInValue != "" && strings.EqualFold(strings.TrimSpace(l.OptIn), r.OptInValue)
}

// Subscribers returns the existing listings that should be alerted about
// fresh: compatible under FindMatches and opted in to notifications.
func (r Rules) Subscribers(listings []domain.Listing, fresh domain.Listing, now time.Time) []domain.Listing {
	var out []domain.Listing
	for _, l := range r.MatchesFor(listings, fresh, now) {
		if r.OptedIn(l) {
			out = append(out, l)
		}
	}
	return out
}
