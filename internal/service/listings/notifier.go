package listings

import (
	"context"
	"time"

	"github.com/recares/dme-matcher/internal/domain"
)

// Notifier delivers the outbound messages. Every call is best effort; the
// service logs a failure and moves on to the next recipient.
type Notifier interface {
	SubmitterConfirmation(ctx context.Context, submitter domain.Listing, matches []domain.Listing) error
	SubscriberAlert(ctx context.Context, subscriber domain.Listing, matches []domain.Listing, fresh domain.Listing) error
	OptOutConfirmation(ctx context.Context, req domain.OptOutRequest, found bool) error
	PartnerOptOut(ctx context.Context, partner domain.Listing, req domain.OptOutRequest) error
	ExpirationWarning(ctx context.Context, l domain.Listing) error
}

// Archiver stores a point-in-time copy of the sheets. It returns a locator
// for the archive (a path or object key).
type Archiver interface {
	Archive(ctx context.Context, at time.Time, sheets map[string]domain.Grid) (string, error)
}
