package holidays

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	isdayoffBaseURL    = "https://isdayoff.ru"
	defaultHTTPTimeout = 10 * time.Second

	// nonWorkingName labels holidays reported by APIs that carry no names
	nonWorkingName = "Non-working day"
)

// isdayoffCountries maps supported regions to isdayoff.ru country codes
var isdayoffCountries = map[string]string{
	"RU": "ru",
	"BY": "by",
	"KZ": "kz",
	"UZ": "uz",
}

// IsDayOff implements Provider using the isdayoff.ru bulk API with an
// xmlcalendar.ru style yearly JSON as fallback. Only non-working weekdays are
// reported as holidays; regular weekends are left to the weekday rules.
type IsDayOff struct {
	baseURL      string
	fallbackURL  string
	httpClient   *http.Client
	logger       *zap.Logger
	fallbackMu   sync.RWMutex
	fallbackData map[string]*xmlCalendarYear // "cc-year" -> calendar data
}

// xmlCalendarYear represents xmlcalendar.ru JSON structure
type xmlCalendarYear struct {
	Year   int                `json:"year"`
	Months []xmlCalendarMonth `json:"months"`
}

type xmlCalendarMonth struct {
	Month int    `json:"month"`
	Days  string `json:"days"` // "1*,2,3+,4,8,9,..." where * = shortened, + = transferred
}

// NewIsDayOff creates the provider. baseURL may be empty for the public API;
// fallbackURL may contain {year} and {country} placeholders.
func NewIsDayOff(baseURL, fallbackURL string, logger *zap.Logger) *IsDayOff {
	if baseURL == "" {
		baseURL = isdayoffBaseURL
	}

	return &IsDayOff{
		baseURL:     strings.TrimRight(baseURL, "/"),
		fallbackURL: fallbackURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger:       logger,
		fallbackData: make(map[string]*xmlCalendarYear),
	}
}

// Lookup returns the holiday on date
func (c *IsDayOff) Lookup(region string, date time.Time) (*Holiday, error) {
	days, err := c.month(region, date.Year(), date.Month())
	if err != nil {
		return nil, err
	}

	key := dateKey(date)
	for i := range days {
		if dateKey(days[i].Date) == key {
			return &days[i], nil
		}
	}
	return nil, nil
}

// Range returns the holidays between from and to inclusive
func (c *IsDayOff) Range(region string, from, to time.Time) ([]Holiday, error) {
	from, to = midnight(from), midnight(to)

	var out []Holiday
	for cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !cursor.After(to); cursor = cursor.AddDate(0, 1, 0) {
		days, err := c.month(region, cursor.Year(), cursor.Month())
		if err != nil {
			return nil, err
		}
		for _, h := range days {
			if !h.Date.Before(from) && !h.Date.After(to) {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

// ClearCache drops downloaded fallback years
func (c *IsDayOff) ClearCache() {
	c.fallbackMu.Lock()
	defer c.fallbackMu.Unlock()

	c.fallbackData = make(map[string]*xmlCalendarYear)
	c.logger.Info("isdayoff fallback cache cleared")
}

func (c *IsDayOff) month(region string, year int, month time.Month) ([]Holiday, error) {
	region = NormalizeRegion(region)
	country, ok := isdayoffCountries[region]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRegion, region)
	}

	days, err := c.fetchMonthFromAPI(region, country, year, month)
	if err == nil {
		return days, nil
	}

	c.logger.Warn("Failed to fetch month from API, trying fallback",
		zap.String("region", region),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Error(err))

	if c.fallbackURL == "" {
		return nil, err
	}

	days, fallbackErr := c.fetchMonthFromFallback(region, country, year, month)
	if fallbackErr != nil {
		return nil, fmt.Errorf("API and fallback both failed: API=%w, Fallback=%v", err, fallbackErr)
	}
	return days, nil
}

// fetchMonthFromAPI fetches entire month from isdayoff.ru bulk API
func (c *IsDayOff) fetchMonthFromAPI(region, country string, year int, month time.Month) ([]Holiday, error) {
	// Build URL: https://isdayoff.ru/api/getdata?year=2025&month=11&cc=ru&pre=1
	url := fmt.Sprintf("%s/api/getdata?year=%d&month=%d&cc=%s&pre=1",
		c.baseURL, year, int(month), country)

	c.logger.Debug("Fetching month from isdayoff",
		zap.String("url", url),
		zap.Int("year", year),
		zap.Int("month", int(month)))

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	days, err := parseBulkResponse(region, year, month, strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bulk response: %w", err)
	}

	c.logger.Debug("Month fetched from API",
		zap.String("region", region),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("holidays", len(days)))

	return days, nil
}

// parseBulkResponse parses isdayoff.ru bulk response string
// Format: "211100011000001100000110000011" where:
// 0 = working day
// 1 = non-working day (holiday/weekend)
// 2 = shortened working day
func parseBulkResponse(region string, year int, month time.Month, data string) ([]Holiday, error) {
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	if len(data) != daysInMonth {
		return nil, fmt.Errorf("bulk data length mismatch: expected %d, got %d", daysInMonth, len(data))
	}

	var out []Holiday
	for i, code := range data {
		date := time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC)

		switch code {
		case '0', '2':
		case '1':
			if !isWeekend(date) {
				out = append(out, Holiday{Region: region, Date: date, Name: nonWorkingName})
			}
		default:
			return nil, fmt.Errorf("unknown code '%c' at position %d", code, i)
		}
	}

	return out, nil
}

// fetchMonthFromFallback fetches month from the yearly fallback document
func (c *IsDayOff) fetchMonthFromFallback(region, country string, year int, month time.Month) ([]Holiday, error) {
	cacheKey := fmt.Sprintf("%s-%d", country, year)

	c.fallbackMu.RLock()
	yearData, exists := c.fallbackData[cacheKey]
	c.fallbackMu.RUnlock()

	if !exists {
		var err error
		yearData, err = c.downloadFallbackYear(country, year)
		if err != nil {
			return nil, fmt.Errorf("failed to download fallback data: %w", err)
		}

		c.fallbackMu.Lock()
		c.fallbackData[cacheKey] = yearData
		c.fallbackMu.Unlock()
	}

	for i := range yearData.Months {
		if yearData.Months[i].Month == int(month) {
			return parseXMLCalendarMonth(region, year, month, &yearData.Months[i], c.logger), nil
		}
	}

	return nil, fmt.Errorf("month %d not found in fallback data for year %d", month, year)
}

// downloadFallbackYear downloads an entire year of fallback data
func (c *IsDayOff) downloadFallbackYear(country string, year int) (*xmlCalendarYear, error) {
	url := strings.ReplaceAll(c.fallbackURL, "{year}", strconv.Itoa(year))
	url = strings.ReplaceAll(url, "{country}", country)

	c.logger.Info("Downloading fallback calendar data",
		zap.String("url", url),
		zap.Int("year", year))

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fallback data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback API returned status %d", resp.StatusCode)
	}

	var yearData xmlCalendarYear
	if err := json.NewDecoder(resp.Body).Decode(&yearData); err != nil {
		return nil, fmt.Errorf("failed to parse fallback JSON: %w", err)
	}

	return &yearData, nil
}

// parseXMLCalendarMonth parses xmlcalendar.ru compact format
// Format: "1*,2,3+,4,8,9,15,16,22,23,29,30"
// * = shortened day (working), + = transferred day off, others = days off
func parseXMLCalendarMonth(region string, year int, month time.Month, xmlMonth *xmlCalendarMonth, logger *zap.Logger) []Holiday {
	var out []Holiday
	if xmlMonth.Days == "" {
		return out
	}

	for _, part := range strings.Split(xmlMonth.Days, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasSuffix(part, "*") {
			continue
		}

		day, err := strconv.Atoi(strings.TrimSuffix(part, "+"))
		if err != nil {
			logger.Warn("Failed to parse day number",
				zap.String("part", part),
				zap.Error(err))
			continue
		}

		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if date.Month() != month || isWeekend(date) {
			continue
		}
		out = append(out, Holiday{Region: region, Date: date, Name: nonWorkingName})
	}

	return out
}

func isWeekend(date time.Time) bool {
	return date.Weekday() == time.Saturday || date.Weekday() == time.Sunday
}
