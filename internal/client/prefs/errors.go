package prefs

import "errors"

var (
	// ErrFetchTimeout means the remote log did not answer within the fetch
	// budget. Treated as "no remote data".
	ErrFetchTimeout = errors.New("remote fetch timed out")
	// ErrFetchFailure means the remote query failed. Treated as "no remote
	// data".
	ErrFetchFailure = errors.New("remote fetch failed")
	// ErrMalformedRecord means the newest remote record could not be parsed.
	// Treated as "no remote data".
	ErrMalformedRecord = errors.New("malformed remote record")
	// ErrPublishFailure means a publish did not reach the remote log. The
	// snapshot stays local until the next mutation re-arms the publisher.
	ErrPublishFailure = errors.New("publish failed")
	// ErrPublishInFlight means a publish cycle was dropped because another
	// publish had not finished.
	ErrPublishInFlight = errors.New("publish already in flight")
	// ErrClosed is returned by Store methods after Close.
	ErrClosed = errors.New("preference store closed")
)
