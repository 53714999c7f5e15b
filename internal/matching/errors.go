package matching

import "errors"

// Sentinel errors for the matching core.
var (
	// ErrOptInFieldMissing means the notification preference column could not
	// be found in the main sheet header. Subscriber alerts and expiration
	// warnings cannot be evaluated until the column label is fixed.
	ErrOptInFieldMissing = errors.New("notification preference column missing from header")
)
