package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tigerroll/cropwx/internal/dataset"
	"github.com/tigerroll/cropwx/internal/domain/entity"
)

// Filter maps a request parameter to an equality predicate on a column.
type Filter struct {
	Param  string
	Column string
	// Parse validates the raw parameter and returns the value bound to the predicate.
	Parse func(raw string) (interface{}, error)
}

// Resource is a queryable table returning rows of type T.
type Resource[T any] struct {
	Name    string
	Table   dataset.Table
	OrderBy string
	Filters []Filter
}

// Weather serves the daily readings, filterable by date and station.
var Weather = Resource[entity.WeatherRecord]{
	Name:    "weather",
	Table:   dataset.WeatherTable,
	OrderBy: "station_id, date",
	Filters: []Filter{
		{Param: "date", Column: "date", Parse: parseDate},
		{Param: "station_id", Column: "station_id", Parse: parseText},
	},
}

// Yield serves the annual yields, filterable by year.
var Yield = Resource[entity.YieldRecord]{
	Name:    "yield",
	Table:   dataset.YieldTable,
	OrderBy: "year",
	Filters: []Filter{
		{Param: "year", Column: "year", Parse: parseYear},
	},
}

// WeatherStats serves the yearly statistics, filterable by year and station.
var WeatherStats = Resource[entity.WeatherStats]{
	Name:    "weather_stats",
	Table:   dataset.WeatherStatsTable,
	OrderBy: "station_id, year",
	Filters: []Filter{
		{Param: "year", Column: "year", Parse: parseYear},
		{Param: "station_id", Column: "station_id", Parse: parseText},
	},
}

func parseDate(raw string) (interface{}, error) {
	d, err := entity.ParseDate(entity.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("must be a date formatted YYYY-MM-DD")
	}
	return d, nil
}

func parseYear(raw string) (interface{}, error) {
	y, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || y < 1 || y > 9999 {
		return nil, fmt.Errorf("must be a year between 1 and 9999")
	}
	return y, nil
}

func parseText(raw string) (interface{}, error) {
	return raw, nil
}
