package types

import "fmt"

// Day selects which of the cached price days a query refers to.
type Day string

var DayToday = Day("today")
var DayTomorrow = Day("tomorrow")

func ParseDay(s string) (Day, error) {
	switch Day(s) {
	case DayToday, DayTomorrow:
		return Day(s), nil
	}
	return "", fmt.Errorf("unknown day %q, expected %s or %s", s, DayToday, DayTomorrow)
}
