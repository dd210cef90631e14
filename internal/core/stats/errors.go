package stats

import "errors"

var (
	ErrEmptyKey           = errors.New("stats key must not be empty")
	ErrStatisticsDisabled = errors.New("statistics are not enabled")
	ErrKeyNotFound        = errors.New("no statistics for key")
)
