// Package httputil provides shared HTTP response/request utilities for the
// event intake handlers, so every endpoint answers with the same JSON
// envelope and logs failures the same way.
package httputil
