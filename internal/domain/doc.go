// Package domain defines the core business types for the DME listing matcher.
//
// Types in this package are pure value objects with no behavior beyond parsing
// and small accessors, no storage dependencies, and no HTTP concerns. They are
// the shared language between the matching core, the services, the repositories
// and the notification composer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
