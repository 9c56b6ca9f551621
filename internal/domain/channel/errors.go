package channel

import "errors"

// Errors shared by every channel adapter
var (
	// ErrNotConfigured indicates the channel's credentials are absent
	ErrNotConfigured = errors.New("channel: platform is not configured")
	// ErrUnavailable indicates the channel API could not be reached
	ErrUnavailable = errors.New("channel: platform is unavailable")
	// ErrRequestFailed indicates the channel API rejected the request
	ErrRequestFailed = errors.New("channel: platform request failed")
	// ErrInvalidResponse indicates the channel API returned an unparseable body
	ErrInvalidResponse = errors.New("channel: platform returned an invalid response")
)
