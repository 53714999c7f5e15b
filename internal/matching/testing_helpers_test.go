package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/recares/dme-matcher/internal/domain"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const testOptInLabel = "Would you like to receive notifications?"

// fakeAppender records appended columns against an in-memory header.
type fakeAppender struct {
	header []string
	calls  int
	fail   error
}

func (f *fakeAppender) AppendColumn(_ context.Context, _ string, label string) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.calls++
	f.header = append(f.header, label)
	return len(f.header) - 1, nil
}

func baseHeader() []string {
	return []string{
		"Timestamp", "Email Address", "Donate or Receive", "First Name", "Last Name",
		"City", "Phone", "OK to share phone?", "Item to donate", "Item needed",
		"Condition", testOptInLabel, "Terms",
	}
}

// extendedHandles are the handles for baseHeader plus the four tracking columns.
func extendedHandles() FieldHandles {
	return FieldHandles{OptOut: 13, NotificationCount: 14, InitialMatchCount: 15, SuccessfulMatch: 16, OptIn: 11}
}

func listing(row int, action domain.Action, item, email string, age time.Duration) domain.Listing {
	l := domain.Listing{
		Row:          row,
		SubmittedAt:  testNow.Add(-age),
		SubmittedRaw: testNow.Add(-age).Format(time.RFC3339),
		Email:        email,
		Action:       action,
		FirstName:    fmt.Sprintf("user%d", row),
		OptIn:        DefaultOptInValue,
	}
	if action == domain.ActionOffer {
		l.OfferedItem = item
	} else {
		l.NeededItem = item
	}
	return l
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }
