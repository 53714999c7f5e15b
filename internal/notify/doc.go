// Package notify renders and delivers the outbound messages of the matcher:
// submitter confirmations, subscriber alerts, opt-out confirmations, partner
// notices and expiration warnings.
//
// Bodies are Liquid templates parsed once at construction. Every value that
// originates from a form response is HTML-escaped before it reaches the
// body. Delivery goes through a Channel: SES in production, the structured
// log in development.
package notify
