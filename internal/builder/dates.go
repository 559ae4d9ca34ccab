package builder

import (
	"fmt"
	"time"
	// Embed the zone database so due-date math works on hosts without
	// a system tzdata install.
	_ "time/tzdata"
)

const (
	dateLayout = "2006-01-02 15:04:05"
	dueLayout  = "2006-01-02T15:04:05Z"
)

// nextSunday returns t advanced to the nearest Sunday, t itself when it
// already is one.
func nextSunday(t time.Time) time.Time {
	// Monday-based weekday, Sunday = 6.
	weekday := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, (6-weekday)%7)
}

// moduleDueDate computes the due timestamp for a module's assignments:
// 23:59 Eastern on the requested weekday of the module's week, rendered
// in UTC. weekOffset is zero-based; weekday is Monday=0 through
// Sunday=6. The first week's anchor is the Sunday on or after the
// course start date.
func moduleDueDate(startDate string, weekOffset, weekday int) (string, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return "", fmt.Errorf("parse start_date %q: %w", startDate, err)
	}
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		return "", fmt.Errorf("load timezone: %w", err)
	}

	anchor := nextSunday(start)
	due := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 23, 59, 0, 0, eastern)
	due = due.AddDate(0, 0, weekOffset*7+weekday-6)
	return due.UTC().Format(dueLayout), nil
}
