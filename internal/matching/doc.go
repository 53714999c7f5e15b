// Package matching is the listing matching core: text normalization, the
// tracking-field schema, the compatibility predicate, opt-out reconciliation
// and expiration selection.
//
// Everything here except EnsureTrackingFields is a pure function over
// snapshots. State changes are returned as Mutations which the caller applies
// to the record store, so the rules can be exercised without a live sheet.
package matching
