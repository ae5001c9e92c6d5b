// Package entity defines the weather, yield and statistics records stored by cropwx.
package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Sentinel marks a missing measurement in the raw files and base tables.
const Sentinel = -9999

// DateLayout is the layout of dates in the read API.
const DateLayout = "2006-01-02"

// FileDateLayout is the layout of dates in the weather input files.
const FileDateLayout = "20060102"

// Record is a row that can be deduplicated on its natural key.
type Record interface {
	NaturalKey() string
}

// keySep joins natural key parts. It cannot appear in parsed values.
const keySep = "\x1f"

// Date is a calendar day without a time zone. It is stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate returns the Date of year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses s with layout into a Date.
func ParseDate(layout, s string) (Date, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(DateLayout, s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner. Drivers return DATE columns as time.Time or text.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanText(s string) error {
	if len(s) >= len(DateLayout) {
		if parsed, err := ParseDate(DateLayout, s[:len(DateLayout)]); err == nil {
			*d = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot scan %q into Date", s)
}

// WeatherRecord is one daily reading of a weather station.
// Temperatures are in tenths of a degree Celsius, precipitation in hundredths of a centimeter.
type WeatherRecord struct {
	StationID     string `gorm:"column:station_id;primaryKey" json:"station_id"`
	Date          Date   `gorm:"column:date;primaryKey" json:"date"`
	MaxTemp       int    `gorm:"column:max_temp" json:"max_temp"`
	MinTemp       int    `gorm:"column:min_temp" json:"min_temp"`
	Precipitation int    `gorm:"column:precipitation" json:"precipitation"`
}

// NaturalKey implements Record.
func (r WeatherRecord) NaturalKey() string {
	return r.StationID + keySep + r.Date.String()
}

// YieldRecord is the total crop yield of one year, in thousands of metric tons.
type YieldRecord struct {
	Year       int `gorm:"column:year;primaryKey" json:"year"`
	TotalYield int `gorm:"column:total_yield" json:"total_yield"`
}

// NaturalKey implements Record.
func (r YieldRecord) NaturalKey() string {
	return fmt.Sprint(r.Year)
}

// WeatherStats summarizes one station over one year in physical units.
// A nil field means every input reading was missing.
type WeatherStats struct {
	StationID          string   `gorm:"column:station_id;primaryKey" json:"station_id"`
	Year               int      `gorm:"column:year;primaryKey" json:"year"`
	AvgMaxTemp         *float64 `gorm:"column:avg_max_temp" json:"avg_max_temp"`
	AvgMinTemp         *float64 `gorm:"column:avg_min_temp" json:"avg_min_temp"`
	TotalPrecipitation *float64 `gorm:"column:total_precipitation" json:"total_precipitation"`
}

// WeatherStatsExport is the Parquet row of a WeatherStats.
type WeatherStatsExport struct {
	StationID          string   `parquet:"name=station_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year               int32    `parquet:"name=year, type=INT32"`
	AvgMaxTemp         *float64 `parquet:"name=avg_max_temp, type=DOUBLE, repetitiontype=OPTIONAL"`
	AvgMinTemp         *float64 `parquet:"name=avg_min_temp, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalPrecipitation *float64 `parquet:"name=total_precipitation, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ToExport converts s to its Parquet row.
func (s WeatherStats) ToExport() WeatherStatsExport {
	return WeatherStatsExport{
		StationID:          s.StationID,
		Year:               int32(s.Year),
		AvgMaxTemp:         s.AvgMaxTemp,
		AvgMinTemp:         s.AvgMinTemp,
		TotalPrecipitation: s.TotalPrecipitation,
	}
}
