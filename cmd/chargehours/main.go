package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nergy-se/smartrce/pkg/ems"
	"github.com/nergy-se/smartrce/pkg/rce"
)

func main() {
	from := flag.String("from", "", "first day YYYY-MM-DD (default today)")
	to := flag.String("to", "", "last day YYYY-MM-DD (default from)")
	url := flag.String("url", rce.DefaultURL, "rce api url")
	tz := flag.String("timezone", "Europe/Warsaw", "timezone of the price days")
	archive := flag.String("archive", "", "directory to store raw responses in")
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatal(err)
	}

	fromDay := time.Now().In(loc)
	if *from != "" {
		fromDay, err = time.ParseInLocation(time.DateOnly, *from, loc)
		if err != nil {
			log.Fatal(err)
		}
	}
	toDay := fromDay
	if *to != "" {
		toDay, err = time.ParseInLocation(time.DateOnly, *to, loc)
		if err != nil {
			log.Fatal(err)
		}
	}

	client := rce.New(*url, loc, *archive)
	for _, day := range rce.DayRange(fromDay, toDay) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		series, err := client.FetchDay(ctx, day)
		cancel()
		if err != nil {
			log.Fatalf("error fetching %s: %s", day.Format(time.DateOnly), err)
		}
		if series == nil {
			fmt.Fprintf(os.Stderr, "no prices published for %s\n", day.Format(time.DateOnly))
			continue
		}
		err = ems.WriteReport(os.Stdout, series)
		if err != nil {
			log.Fatal(err)
		}
	}
}
