package clock

import "time"

// Clock supplies the current time. Injecting it keeps age, overdue and
// date-in-the-past checks deterministic under test.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a clock frozen at a single instant.
type Fixed struct {
	Instant time.Time
}

// Now returns the frozen instant.
func (f Fixed) Now() time.Time { return f.Instant }

// At returns a Fixed clock frozen at t.
func At(t time.Time) Fixed { return Fixed{Instant: t} }

// Today truncates the clock's current time to a date.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf truncates t to midnight UTC so dates compare by calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
