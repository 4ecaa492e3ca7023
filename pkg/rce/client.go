package rce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nergy-se/smartrce/pkg/prices"
	"github.com/nergy-se/smartrce/pkg/version"
	"github.com/sirupsen/logrus"
)

const DefaultURL = "https://api.raporty.pse.pl/api/rce-pln"

// ApiError is returned when the api answers with anything but 200.
type ApiError struct {
	StatusCode int
	Body       string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("invalid response from RCE API: %d %s", e.StatusCode, e.Body)
}

type Response struct {
	Value []Entry `json:"value"`
}

type Entry struct {
	Doba           string  `json:"doba"`
	UdtczasOreb    string  `json:"udtczas_oreb"`
	SourceDatetime string  `json:"source_datetime"`
	RcePln         float64 `json:"rce_pln"`
}

type Client struct {
	baseURL    string
	location   *time.Location
	archiveDir string
	client     *http.Client
}

// New creates a client for baseURL. Days are interpreted in loc. If
// archiveDir is not empty every raw response is written there.
func New(baseURL string, loc *time.Location, archiveDir string) *Client {
	return &Client{
		baseURL:    baseURL,
		location:   loc,
		archiveDir: archiveDir,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchDay returns the hourly prices of day. A nil series without error means
// the day is not published yet.
func (c *Client) FetchDay(ctx context.Context, day time.Time) (*prices.Series, error) {
	day = day.In(c.location)
	raw, err := c.fetchRaw(ctx, day)
	if err != nil {
		return nil, err
	}

	if c.archiveDir != "" {
		if err := c.archive(day, raw); err != nil {
			logrus.Errorf("rce: error archiving raw prices: %s", err)
		}
	}

	resp := &Response{}
	err = json.Unmarshal(raw, resp)
	if err != nil {
		return nil, fmt.Errorf("error decoding rce response: %w", err)
	}
	return resp.Series(day)
}

// Series converts the response to a prices.Series for day. Entries not starting
// on a full hour are dropped.
func (r *Response) Series(day time.Time) (*prices.Series, error) {
	if len(r.Value) == 0 {
		return nil, nil
	}
	records := make([]prices.Record, 0, prices.HoursPerDay)
	publishedAt := ""
	for _, e := range r.Value {
		publishedAt = e.SourceDatetime
		t, err := e.Start(day.Location())
		if err != nil {
			return nil, err
		}
		if t.Minute() != 0 {
			continue
		}
		records = append(records, prices.Record{Time: t, Price: e.RcePln})
	}
	s, err := prices.NewSeries(day, records)
	if err != nil {
		return nil, err
	}
	s.PublishedAt = publishedAt
	return s, nil
}

// Start parses the beginning of the quarter hour interval, "00:15 - 00:30" -> 00:15.
func (e Entry) Start(loc *time.Location) (time.Time, error) {
	interval := e.UdtczasOreb
	if len(interval) < 5 {
		return time.Time{}, fmt.Errorf("%w: bad interval %q", prices.ErrMalformed, interval)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", e.Doba+" "+interval[:5], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", prices.ErrMalformed, err)
	}
	return t, nil
}

func (c *Client) fetchRaw(ctx context.Context, day time.Time) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid rce url: %w", err)
	}
	q := u.Query()
	q.Set("$select", "doba,udtczas_oreb,source_datetime,rce_pln")
	q.Set("$filter", fmt.Sprintf("doba eq '%s'", day.Format(time.DateOnly)))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "smartrce/"+version.Commit())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ApiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *Client) archive(day time.Time, raw []byte) error {
	name := filepath.Join(c.archiveDir, fmt.Sprintf("rce_%04d_%02d_%02d.json", day.Year(), day.Month(), day.Day()))
	return os.WriteFile(name, raw, 0o644)
}

// DayRange returns every day from from to to inclusive.
func DayRange(from, to time.Time) []time.Time {
	var days []time.Time
	for d := prices.StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
