package history

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// TrailingWindow is the number of preceding days averaged by the rolling features.
const TrailingWindow = 7

// Feature and target names. Trained models record the ordered names they were
// fitted on and prediction vectors are assembled from them.
const (
	Day             = "day"
	Month           = "month"
	MaxTempAvg      = "max_temp_avg"
	MinTempAvg      = "min_temp_avg"
	WindAvg         = "wind_avg"
	CloudAvg        = "cloud_avg"
	HumidityAvg     = "humidity_avg"
	PrevDayWind     = "prev_day_wind"
	PrevDayPrecip   = "prev_day_precip"
	PrevDayCloud    = "prev_day_cloud"
	PrevDaySunshine = "prev_day_sunshine"
	PrevDayHumidity = "prev_day_humidity"
	WeekDayMax      = "week_day_max"
	WeekDayMin      = "week_day_min"

	MinTemp       = "min_temp"
	MaxTemp       = "max_temp"
	Temp9am       = "temp_9am"
	Temp3pm       = "temp_3pm"
	Precipitation = "precipitation"
	MaxWindSpeed  = "max_wind_speed"
	Cloud9am      = "cloud_9am"
	Cloud3pm      = "cloud_3pm"
	Humidity9am   = "humidity_9am"
	Humidity3pm   = "humidity_3pm"
	Sunshine      = "sunshine"
)

// ErrUnknownFeature is returned when a feature name has no column.
var ErrUnknownFeature = errors.New("unknown feature")

// FeatureRow is a Record extended with the rolling, lagged and ratio features
// derived from the days before it.
type FeatureRow struct {
	Record

	Day   int
	Month int

	MaxTempAvg  float64
	MinTempAvg  float64
	WindAvg     float64
	CloudAvg    float64
	HumidityAvg float64

	PrevDayWind     float64
	PrevDayPrecip   float64
	PrevDayCloud    float64
	PrevDaySunshine float64
	PrevDayHumidity float64

	WeekDayMax float64
	WeekDayMin float64
}

var columns = map[string]func(*FeatureRow) float64{
	Day:             func(r *FeatureRow) float64 { return float64(r.Day) },
	Month:           func(r *FeatureRow) float64 { return float64(r.Month) },
	MaxTempAvg:      func(r *FeatureRow) float64 { return r.MaxTempAvg },
	MinTempAvg:      func(r *FeatureRow) float64 { return r.MinTempAvg },
	WindAvg:         func(r *FeatureRow) float64 { return r.WindAvg },
	CloudAvg:        func(r *FeatureRow) float64 { return r.CloudAvg },
	HumidityAvg:     func(r *FeatureRow) float64 { return r.HumidityAvg },
	PrevDayWind:     func(r *FeatureRow) float64 { return r.PrevDayWind },
	PrevDayPrecip:   func(r *FeatureRow) float64 { return r.PrevDayPrecip },
	PrevDayCloud:    func(r *FeatureRow) float64 { return r.PrevDayCloud },
	PrevDaySunshine: func(r *FeatureRow) float64 { return r.PrevDaySunshine },
	PrevDayHumidity: func(r *FeatureRow) float64 { return r.PrevDayHumidity },
	WeekDayMax:      func(r *FeatureRow) float64 { return r.WeekDayMax },
	WeekDayMin:      func(r *FeatureRow) float64 { return r.WeekDayMin },
	MinTemp:         func(r *FeatureRow) float64 { return r.MinTemp },
	MaxTemp:         func(r *FeatureRow) float64 { return r.MaxTemp },
	Temp9am:         func(r *FeatureRow) float64 { return r.Temp9am },
	Temp3pm:         func(r *FeatureRow) float64 { return r.Temp3pm },
	Precipitation:   func(r *FeatureRow) float64 { return r.Precipitation },
	MaxWindSpeed:    func(r *FeatureRow) float64 { return r.MaxWindSpeed },
	Cloud9am:        func(r *FeatureRow) float64 { return r.Cloud9am },
	Cloud3pm:        func(r *FeatureRow) float64 { return r.Cloud3pm },
	Humidity9am:     func(r *FeatureRow) float64 { return r.Humidity9am },
	Humidity3pm:     func(r *FeatureRow) float64 { return r.Humidity3pm },
	Sunshine:        func(r *FeatureRow) float64 { return r.Sunshine },
}

// Value returns the named column of the row.
func (r *FeatureRow) Value(name string) (float64, error) {
	get, ok := columns[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	return get(r), nil
}

// Vector returns the named columns in order.
func (r *FeatureRow) Vector(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := r.Value(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// VectorFor assembles the named columns as a snapshot for target: calendar
// features come from target, everything else from the row.
func (r *FeatureRow) VectorFor(target time.Time, names []string) ([]float64, error) {
	out, err := r.Vector(names)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		switch name {
		case Day:
			out[i] = float64(target.Day())
		case Month:
			out[i] = float64(target.Month())
		}
	}
	return out, nil
}

// Derive computes the feature rows for date-ordered records. Rows whose
// trailing window is incomplete, or where any value is undefined, are dropped.
func Derive(records []Record) []FeatureRow {
	rows := make([]FeatureRow, 0, len(records))

	for i := range records {
		rec := records[i]
		row := FeatureRow{
			Record:      rec,
			Day:         rec.Date.Day(),
			Month:       int(rec.Date.Month()),
			CloudAvg:    (rec.Cloud9am + rec.Cloud3pm) / 2,
			HumidityAvg: (rec.Humidity9am + rec.Humidity3pm) / 2,
			MaxTempAvg:  math.NaN(),
			MinTempAvg:  math.NaN(),
			WindAvg:     math.NaN(),
		}

		if i > 0 {
			prev := records[i-1]
			row.PrevDayWind = zeroIfNaN(prev.MaxWindSpeed)
			row.PrevDayPrecip = zeroIfNaN(prev.Precipitation)
			row.PrevDayCloud = zeroIfNaN((prev.Cloud9am + prev.Cloud3pm) / 2)
			row.PrevDaySunshine = zeroIfNaN(prev.Sunshine)
			row.PrevDayHumidity = zeroIfNaN((prev.Humidity9am + prev.Humidity3pm) / 2)
		}

		if i >= TrailingWindow {
			window := records[i-TrailingWindow : i]
			row.MaxTempAvg = mean(window, func(r Record) float64 { return r.MaxTemp })
			row.MinTempAvg = mean(window, func(r Record) float64 { return r.MinTemp })
			row.WindAvg = mean(window, func(r Record) float64 { return r.MaxWindSpeed })
		}

		row.WeekDayMax = row.MaxTempAvg / rec.MaxTemp
		row.WeekDayMin = row.MinTempAvg / rec.MinTemp

		if row.complete() {
			rows = append(rows, row)
		}
	}

	return rows
}

func (r *FeatureRow) complete() bool {
	if r.WeatherType == "" {
		return false
	}
	for _, get := range columns {
		v := get(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func mean(window []Record, field func(Record) float64) float64 {
	var sum float64
	for _, r := range window {
		sum += field(r)
	}
	return sum / float64(len(window))
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
