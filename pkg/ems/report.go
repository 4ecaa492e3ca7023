package ems

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nergy-se/smartrce/pkg/prices"
)

// WriteReport writes a tab separated charge hours report for series. One row
// per hour: day (first row only), hour, price, window marks for H8..H3 where
// the chosen window is marked with a star, a price bar and the day again.
func WriteReport(w io.Writer, series *prices.Series) error {
	plan, err := NewPlan(series)
	if err != nil {
		return err
	}
	day := plan.Day.Format(time.DateOnly)

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	for hour, price := range plan.HourlyPrices {
		row := make([]string, 0, 5+MaxWindowHours-MinWindowHours+1)
		if hour == 0 {
			row = append(row, day)
		} else {
			row = append(row, "")
		}
		row = append(row, strconv.Itoa(hour), decimalComma(price))

		for hours := MaxWindowHours; hours >= MinWindowHours; hours-- {
			mark := ""
			if plan.FirstHour(hours) <= hour && hour <= plan.LastHour(hours) {
				mark = fmt.Sprintf("H%d", hours)
				if hours == plan.WindowHours {
					mark += "*"
				}
			}
			row = append(row, mark)
		}
		row = append(row, priceBar(price), day)

		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// decimalComma formats like 123,45 and always keeps one decimal, 250 -> 250,0.
func decimalComma(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return strings.Replace(s, ".", ",", 1)
}

func priceBar(price float64) string {
	size := int(math.Max(math.RoundToEven(price/10), 0))
	if size == 0 {
		return "|"
	}
	return strings.Repeat("*", size)
}
