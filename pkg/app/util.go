package app

import "time"

func calculateNextDelay(now time.Time) time.Duration {
	// next full minute
	next := time.Date(
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		now.Minute()+1,
		0,
		0,
		now.Location(),
	)
	return next.Sub(now)
}
