package listings

import "errors"

// Sentinel errors for the listings service layer.
var (
	ErrUnknownSheet = errors.New("event for unknown sheet")
	ErrRowNotFound  = errors.New("row not found")
	ErrEmptyRow     = errors.New("form response has no values")
)
