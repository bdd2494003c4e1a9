package health

import "context"

// StorePinger checks search store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// RankerChecker checks semantic ranking provider availability.
type RankerChecker interface {
	HealthCheck(ctx context.Context) error
}
