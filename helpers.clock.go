package main

import "time"

// Clocker reads the current time. Handlers, the access log and the
// backup bucket names go through it so tests can pin the time.
type Clocker interface {
	Now() time.Time
}

// Clock reads the wall clock in a fixed location.
type Clock struct {
	loc *time.Location
}

// NewClock reads UTC in production and the host timezone otherwise.
func NewClock(isProd bool) *Clock {
	loc := time.Local
	if isProd {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Since is the elapsed time from t, used to report the reset duration.
func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
