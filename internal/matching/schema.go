package matching

import (
	"context"
	"fmt"
	"strings"
)

// Tracking column labels, in the order they are appended to the header.
const (
	LabelOptOutStatus      = "Opt Out Status"
	LabelNotificationCount = "Notification Count"
	LabelInitialMatchCount = "Initial Match Count"
	LabelSuccessfulMatch   = "Successful Match"
)

// TrackingLabels lists the derived columns in their fixed order.
var TrackingLabels = []string{
	LabelOptOutStatus,
	LabelNotificationCount,
	LabelInitialMatchCount,
	LabelSuccessfulMatch,
}

// ColumnAppender is the part of the record store the schema manager needs.
type ColumnAppender interface {
	// AppendColumn adds a header cell after the last column and returns its
	// zero-based index.
	AppendColumn(ctx context.Context, sheet, label string) (int, error)
}

// FieldHandles maps logical fields to column indices of the main sheet.
// OptIn is -1 when the preference column could not be resolved.
type FieldHandles struct {
	OptOut            int `json:"opt_out"`
	NotificationCount int `json:"notification_count"`
	InitialMatchCount int `json:"initial_match_count"`
	SuccessfulMatch   int `json:"successful_match"`
	OptIn             int `json:"opt_in"`
}

// RequireOptIn returns ErrOptInFieldMissing when the preference column is unresolved.
func (h FieldHandles) RequireOptIn() error {
	if h.OptIn < 0 {
		return ErrOptInFieldMissing
	}
	return nil
}

// internal reports whether col holds data that must never leave the system.
func (h FieldHandles) internal(col int) bool {
	switch col {
	case h.OptOut, h.NotificationCount, h.InitialMatchCount, h.SuccessfulMatch:
		return true
	}
	return col == h.OptIn && h.OptIn >= 0
}

// EnsureTrackingFields makes sure the four tracking columns exist on sheet,
// appending any that are missing, and resolves the opt-in column by its
// configured label. Calling it on an already extended header has no effect.
func EnsureTrackingFields(ctx context.Context, store ColumnAppender, sheet string, header []string, optInLabel string) (FieldHandles, error) {
	cols := append([]string(nil), header...)
	idx := make([]int, len(TrackingLabels))

	for i, label := range TrackingLabels {
		pos := indexOf(cols, label)
		if pos < 0 {
			var err error
			pos, err = store.AppendColumn(ctx, sheet, label)
			if err != nil {
				return FieldHandles{}, fmt.Errorf("append column %q: %w", label, err)
			}
			for len(cols) <= pos {
				cols = append(cols, "")
			}
			cols[pos] = label
		}
		idx[i] = pos
	}

	return FieldHandles{
		OptOut:            idx[0],
		NotificationCount: idx[1],
		InitialMatchCount: idx[2],
		SuccessfulMatch:   idx[3],
		OptIn:             ResolveOptIn(cols, optInLabel),
	}, nil
}

// ResolveOptIn finds the preference column by label, ignoring case and
// surrounding whitespace. It returns -1 when the label is absent.
func ResolveOptIn(header []string, label string) int {
	want := strings.TrimSpace(label)
	if want == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i
		}
	}
	return -1
}

func indexOf(header []string, label string) int {
	for i, h := range header {
		if h == label {
			return i
		}
	}
	return -1
}
