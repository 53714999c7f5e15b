package domain

import (
	"strconv"
	"strings"
	"time"
)

// Action is the side of the exchange a listing is on.
type Action string

const (
	ActionOffer   Action = "Donate"
	ActionNeed    Action = "Receive"
	ActionUnknown Action = ""
)

// ParseAction maps the form's action label onto an Action.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "donate", "offer":
		return ActionOffer
	case "receive", "need":
		return ActionNeed
	}
	return ActionUnknown
}

// Opposite returns the action a listing must have to be compatible with a.
func (a Action) Opposite() Action {
	switch a {
	case ActionOffer:
		return ActionNeed
	case ActionNeed:
		return ActionOffer
	}
	return ActionUnknown
}

// OptOutStatus is the lifecycle state of a listing. OptedOut is terminal.
type OptOutStatus string

const (
	StatusActive   OptOutStatus = ""
	StatusOptedOut OptOutStatus = "Opted Out"
)

// SuccessYes is written to the successful-match field of a partner's listing.
const SuccessYes = "Yes"

// Fixed column contract of the main sheet.
const (
	ColTimestamp    = 0
	ColEmail        = 1
	ColAction       = 2
	ColFirstName    = 3
	ColLastName     = 4
	ColCity         = 5
	ColPhone        = 6
	ColPhoneConsent = 7
	ColOfferedItem  = 8
	ColNeededItem   = 9
	FirstDetailCol  = 10
)

// Fixed column contract of the opt-out sheet.
const (
	OptOutColTimestamp  = 0
	OptOutColEmail      = 1
	OptOutColItem       = 3
	OptOutColSuccessful = 4
	OptOutColPartner    = 6
)

// Tracking holds the derived fields the engine maintains on every listing.
type Tracking struct {
	OptOut            OptOutStatus `json:"opt_out"`
	NotificationCount int          `json:"notification_count"`
	InitialMatchCount int          `json:"initial_match_count"`
	SuccessfulMatch   string       `json:"successful_match"`
}

// OptedOut reports whether the listing has been retired.
func (t Tracking) OptedOut() bool { return t.OptOut == StatusOptedOut }

// Listing is one Offer or Need row of the main sheet.
type Listing struct {
	Row          int       `json:"row"`
	SubmittedRaw string    `json:"submitted_raw"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Email        string    `json:"email"`
	Action       Action    `json:"action"`
	FirstName    string    `json:"first_name"`
	City         string    `json:"city"`
	Phone        string    `json:"phone"`
	PhoneConsent string    `json:"phone_consent"`
	OfferedItem  string    `json:"offered_item"`
	NeededItem   string    `json:"needed_item"`
	OptIn        string    `json:"opt_in"`
	Details      []string  `json:"details,omitempty"`
	Tracking     Tracking  `json:"tracking"`
}

// Item returns the item field selected by the listing's action.
func (l Listing) Item() string {
	switch l.Action {
	case ActionOffer:
		return l.OfferedItem
	case ActionNeed:
		return l.NeededItem
	}
	return ""
}

// AgeAt returns how long the listing has existed at now. A listing with an
// unparseable timestamp is treated as infinitely old.
func (l Listing) AgeAt(now time.Time) time.Duration {
	if l.SubmittedAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(l.SubmittedAt)
}

// OptOutRequest is one row of the opt-out sheet.
type OptOutRequest struct {
	Row           int       `json:"row"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Email         string    `json:"email"`
	Item          string    `json:"item"`
	WasSuccessful string    `json:"was_successful"`
	PartnerEmail  string    `json:"partner_email,omitempty"`
}

// OptOutRequestFromValues builds a request from raw opt-out sheet values.
// Timestamps without an offset are read in loc.
func OptOutRequestFromValues(row int, values []string, loc *time.Location) OptOutRequest {
	return OptOutRequest{
		Row:           row,
		SubmittedAt:   ParseTimestampIn(cellAt(values, OptOutColTimestamp), loc),
		Email:         cellAt(values, OptOutColEmail),
		Item:          cellAt(values, OptOutColItem),
		WasSuccessful: cellAt(values, OptOutColSuccessful),
		PartnerEmail:  cellAt(values, OptOutColPartner),
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp is ParseTimestampIn with UTC.
func ParseTimestamp(s string) time.Time {
	return ParseTimestampIn(s, time.UTC)
}

// ParseTimestampIn accepts RFC3339 and the spreadsheet export formats. The
// export formats carry no offset and are read in loc (UTC when nil). It
// returns the zero time when nothing matches.
func ParseTimestampIn(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseCount reads a counter cell; blank or garbage counts as zero.
func ParseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
