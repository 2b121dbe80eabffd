package domain

import "errors"

var (
	errInvalidPosition = errors.New("domain: signal position must be long or short")
	errInvalidBounds   = errors.New("domain: stop-loss/open/take-profit ordering violates invariant 3")
	errInvalidTimeout  = errors.New("domain: minuteEstimatedTime must be positive")
)
