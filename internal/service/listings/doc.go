// Package listings implements the event handlers of the DME matcher.
//
// Three events drive the system: a new form response on the main sheet
// (a listing), a new form response on the opt-out sheet, and the daily
// timer. Each handler snapshots the record store, runs the pure rules from
// the matching package, writes the resulting single-cell updates back and
// dispatches notifications. Handlers run one at a time per store under a
// distributed lock.
//
// The service depends on the Repository interface defined in repository.go
// and on the Notifier interface in notifier.go. It never imports net/http or
// database/sql directly.
package listings
