package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
)

var (
	// ErrMissingColumn is returned when the dataset header lacks a required column.
	ErrMissingColumn = errors.New("missing column")
	// ErrDuplicateDate is returned when two records share a calendar date.
	ErrDuplicateDate = errors.New("duplicate date")
)

// Record is one day of observed weather.
type Record struct {
	Date          time.Time
	MinTemp       float64
	MaxTemp       float64
	Temp9am       float64
	Temp3pm       float64
	Precipitation float64
	MaxWindSpeed  float64
	Cloud9am      float64
	Cloud3pm      float64
	Humidity9am   float64
	Humidity3pm   float64
	Sunshine      float64
	WeatherType   string
}

// Dataset column headers.
const (
	colDate          = "Date"
	colMinTemp       = "MinTemp"
	colMaxTemp       = "MaxTemp"
	colTemp9am       = "9amTemp"
	colTemp3pm       = "3pmTemp"
	colPrecipitation = "Precipitation"
	colMaxWindSpeed  = "MaxWindSpeed"
	colCloud9am      = "9amCloud"
	colCloud3pm      = "3pmCloud"
	colHumidity9am   = "9amHumidity"
	colHumidity3pm   = "3pmHumidity"
	colSunshine      = "Sunshine"
	colWeatherType   = "WeatherType"
)

var numericColumns = []struct {
	name string
	set  func(*Record, float64)
}{
	{colMinTemp, func(r *Record, v float64) { r.MinTemp = v }},
	{colMaxTemp, func(r *Record, v float64) { r.MaxTemp = v }},
	{colTemp9am, func(r *Record, v float64) { r.Temp9am = v }},
	{colTemp3pm, func(r *Record, v float64) { r.Temp3pm = v }},
	{colPrecipitation, func(r *Record, v float64) { r.Precipitation = v }},
	{colMaxWindSpeed, func(r *Record, v float64) { r.MaxWindSpeed = v }},
	{colCloud9am, func(r *Record, v float64) { r.Cloud9am = v }},
	{colCloud3pm, func(r *Record, v float64) { r.Cloud3pm = v }},
	{colHumidity9am, func(r *Record, v float64) { r.Humidity9am = v }},
	{colHumidity3pm, func(r *Record, v float64) { r.Humidity3pm = v }},
	{colSunshine, func(r *Record, v float64) { r.Sunshine = v }},
}

// ReadCSV parses the historical dataset. Columns are matched by header name so
// extra columns (an index, previously derived features) are ignored. Empty
// numeric cells load as NaN. The result is sorted by date.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	required := []string{colDate, colWeatherType}
	for _, c := range numericColumns {
		required = append(required, c.name)
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var records []Record
	line := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(name string) string {
			i := index[name]
			if i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		date, err := common.ParseDate(cell(colDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", line, cell(colDate), err)
		}

		rec := Record{Date: date, WeatherType: cell(colWeatherType)}
		for _, c := range numericColumns {
			v, err := parseFloat(cell(c.name))
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, c.name, err)
			}
			c.set(&rec, v)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	for i := 1; i < len(records); i++ {
		if records[i].Date.Equal(records[i-1].Date) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, records[i].Date.Format(common.DateLayout))
		}
	}

	return records, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
