// Package dataset describes the input domains of cropwx: where their files live
// on disk, how a line decodes into a record and which table the records load into.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tigerroll/cropwx/internal/domain/entity"
)

// Table names a table and the schema it lives in on engines that support schemas.
type Table struct {
	Schema string
	Name   string
}

// Qualified returns the table name to use in SQL. Engines without schemas use the bare name.
func (t Table) Qualified(useSchemas bool) string {
	if useSchemas && t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// Tables of the cropwx database.
var (
	WeatherTable      = Table{Schema: "wx_schema", Name: "wx_data"}
	YieldTable        = Table{Schema: "yld_schema", Name: "yld_data"}
	WeatherStatsTable = Table{Schema: "wx_schema", Name: "wx_stats"}
)

// Target is the load destination of a dataset.
type Target struct {
	// Name identifies the dataset in logs and metrics.
	Name    string
	Table   Table
	Columns []string
	// Key is the natural key, a prefix-free subset of Columns.
	Key []string
}

// Dataset is the strategy for one input domain.
type Dataset[R entity.Record] struct {
	Target
	// Fields is the number of tab-separated fields of an input line.
	Fields int
	// Decode builds a record from the fields of one line of the file named stem.
	Decode func(stem string, fields []string) (R, error)
	// Values returns the column values of r in Columns order.
	Values func(r R) []interface{}
}

// Rows converts records into column value rows for loading.
func (d Dataset[R]) Rows(records []R) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = d.Values(r)
	}
	return rows
}

// Weather is the daily station readings dataset. The file stem is the station ID.
func Weather() Dataset[entity.WeatherRecord] {
	return Dataset[entity.WeatherRecord]{
		Target: Target{
			Name:    "weather",
			Table:   WeatherTable,
			Columns: []string{"station_id", "date", "max_temp", "min_temp", "precipitation"},
			Key:     []string{"station_id", "date"},
		},
		Fields: 4,
		Decode: decodeWeather,
		Values: func(r entity.WeatherRecord) []interface{} {
			return []interface{}{r.StationID, r.Date.Time, r.MaxTemp, r.MinTemp, r.Precipitation}
		},
	}
}

// Yield is the annual crop yield dataset. The file stem is not part of the record.
func Yield() Dataset[entity.YieldRecord] {
	return Dataset[entity.YieldRecord]{
		Target: Target{
			Name:    "yield",
			Table:   YieldTable,
			Columns: []string{"year", "total_yield"},
			Key:     []string{"year"},
		},
		Fields: 2,
		Decode: decodeYield,
		Values: func(r entity.YieldRecord) []interface{} {
			return []interface{}{r.Year, r.TotalYield}
		},
	}
}

func decodeWeather(stem string, fields []string) (entity.WeatherRecord, error) {
	date, err := entity.ParseDate(entity.FileDateLayout, fields[0])
	if err != nil {
		return entity.WeatherRecord{}, fmt.Errorf("invalid date %q", fields[0])
	}
	vals, err := atoiAll([]string{"max_temp", "min_temp", "precipitation"}, fields[1:])
	if err != nil {
		return entity.WeatherRecord{}, err
	}
	return entity.WeatherRecord{
		StationID:     stem,
		Date:          date,
		MaxTemp:       vals[0],
		MinTemp:       vals[1],
		Precipitation: vals[2],
	}, nil
}

func decodeYield(_ string, fields []string) (entity.YieldRecord, error) {
	vals, err := atoiAll([]string{"year", "total_yield"}, fields)
	if err != nil {
		return entity.YieldRecord{}, err
	}
	return entity.YieldRecord{Year: vals[0], TotalYield: vals[1]}, nil
}

func atoiAll(names []string, fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", names[i], f)
		}
		out[i] = v
	}
	return out, nil
}
