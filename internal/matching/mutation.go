package matching

import (
	"strconv"

	"github.com/recares/dme-matcher/internal/domain"
)

// Mutation is a change to the tracking fields of one listing.
type Mutation struct {
	Row    int             `json:"row"`
	Before domain.Tracking `json:"before"`
	After  domain.Tracking `json:"after"`
}

// Changed reports whether the mutation alters anything.
func (m Mutation) Changed() bool { return m.Before != m.After }

// Cells returns the single-cell writes needed to apply m. Unchanged fields
// produce no write.
func (m Mutation) Cells(h FieldHandles) []domain.CellUpdate {
	var out []domain.CellUpdate
	if m.Before.OptOut != m.After.OptOut {
		out = append(out, domain.CellUpdate{Row: m.Row, Col: h.OptOut, Value: string(m.After.OptOut)})
	}
	if m.Before.NotificationCount != m.After.NotificationCount {
		out = append(out, domain.CellUpdate{Row: m.Row, Col: h.NotificationCount, Value: strconv.Itoa(m.After.NotificationCount)})
	}
	if m.Before.InitialMatchCount != m.After.InitialMatchCount {
		out = append(out, domain.CellUpdate{Row: m.Row, Col: h.InitialMatchCount, Value: strconv.Itoa(m.After.InitialMatchCount)})
	}
	if m.Before.SuccessfulMatch != m.After.SuccessfulMatch {
		out = append(out, domain.CellUpdate{Row: m.Row, Col: h.SuccessfulMatch, Value: m.After.SuccessfulMatch})
	}
	return out
}

// IncrementNotifications bumps the notification counter of l by one.
func IncrementNotifications(l domain.Listing) Mutation {
	after := l.Tracking
	after.NotificationCount++
	return Mutation{Row: l.Row, Before: l.Tracking, After: after}
}

// RecordInitialMatches stores the match count found at submission time.
// The count is always written, even when it equals the current cell value,
// so a blank cell becomes an explicit zero.
func RecordInitialMatches(l domain.Listing, n int, h FieldHandles) domain.CellUpdate {
	return domain.CellUpdate{Row: l.Row, Col: h.InitialMatchCount, Value: strconv.Itoa(n)}
}
