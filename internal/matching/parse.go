package matching

import (
	"strings"
	"time"

	"github.com/recares/dme-matcher/internal/domain"
)

// ParseListings converts a main sheet snapshot into listings. Free-form
// detail values are collected from the columns after the fixed contract,
// skipping the opt-in and tracking columns named by h. Timestamps without
// an offset are read in loc.
func ParseListings(g domain.Grid, h FieldHandles, loc *time.Location) []domain.Listing {
	out := make([]domain.Listing, 0, g.Len())
	for i := 1; i <= g.Len(); i++ {
		out = append(out, ParseListing(g, i, h, loc))
	}
	return out
}

// ParseListing converts a single grid row.
func ParseListing(g domain.Grid, row int, h FieldHandles, loc *time.Location) domain.Listing {
	cell := func(col int) string { return g.Cell(row, col) }

	l := domain.Listing{
		Row:          row,
		SubmittedRaw: cell(domain.ColTimestamp),
		SubmittedAt:  domain.ParseTimestampIn(cell(domain.ColTimestamp), loc),
		Email:        strings.TrimSpace(cell(domain.ColEmail)),
		Action:       domain.ParseAction(cell(domain.ColAction)),
		FirstName:    cell(domain.ColFirstName),
		City:         cell(domain.ColCity),
		Phone:        cell(domain.ColPhone),
		PhoneConsent: cell(domain.ColPhoneConsent),
		OfferedItem:  cell(domain.ColOfferedItem),
		NeededItem:   cell(domain.ColNeededItem),
		Tracking: domain.Tracking{
			OptOut:            domain.OptOutStatus(strings.TrimSpace(cell(h.OptOut))),
			NotificationCount: domain.ParseCount(cell(h.NotificationCount)),
			InitialMatchCount: domain.ParseCount(cell(h.InitialMatchCount)),
			SuccessfulMatch:   cell(h.SuccessfulMatch),
		},
	}
	if h.OptIn >= 0 {
		l.OptIn = cell(h.OptIn)
	}

	var width int
	if row >= 1 && row <= g.Len() {
		width = len(g.Rows[row-1])
	}
	for col := domain.FirstDetailCol; col < width; col++ {
		if h.internal(col) {
			continue
		}
		v := strings.TrimSpace(cell(col))
		if v == "" || strings.EqualFold(v, "agree") {
			continue
		}
		l.Details = append(l.Details, v)
	}
	return l
}

// ParseOptOutRequests converts an opt-out sheet snapshot into requests.
func ParseOptOutRequests(g domain.Grid, loc *time.Location) []domain.OptOutRequest {
	out := make([]domain.OptOutRequest, 0, g.Len())
	for i, values := range g.Rows {
		out = append(out, domain.OptOutRequestFromValues(i+1, values, loc))
	}
	return out
}
