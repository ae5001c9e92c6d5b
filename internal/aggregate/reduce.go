package aggregate

import "github.com/tigerroll/cropwx/internal/domain/entity"

// Divisors converting the stored integers to physical units.
const (
	// TempDivisor converts tenths of a degree Celsius to degrees.
	TempDivisor = 10.0
	// PrecipitationDivisor converts hundredths of a centimeter to centimeters.
	PrecipitationDivisor = 100.0
)

// fieldAcc reduces one field, ignoring sentinel inputs.
type fieldAcc struct {
	sum int64
	n   int
}

func (a *fieldAcc) add(v int) {
	if v == entity.Sentinel {
		return
	}
	a.sum += int64(v)
	a.n++
}

func (a fieldAcc) mean(divisor float64) *float64 {
	if a.n == 0 {
		return nil
	}
	v := float64(a.sum) / float64(a.n) / divisor
	return &v
}

func (a fieldAcc) total(divisor float64) *float64 {
	if a.n == 0 {
		return nil
	}
	v := float64(a.sum) / divisor
	return &v
}

// Accumulator reduces the readings of one station and year.
type Accumulator struct {
	StationID string
	Year      int
	maxTemp   fieldAcc
	minTemp   fieldAcc
	precip    fieldAcc
}

// NewAccumulator starts the group of stationID and year.
func NewAccumulator(stationID string, year int) *Accumulator {
	return &Accumulator{StationID: stationID, Year: year}
}

// Add folds one reading into the group. Each field skips its own sentinels.
func (a *Accumulator) Add(r entity.WeatherRecord) {
	a.maxTemp.add(r.MaxTemp)
	a.minTemp.add(r.MinTemp)
	a.precip.add(r.Precipitation)
}

// Stats returns the summary of the readings added so far.
func (a *Accumulator) Stats() entity.WeatherStats {
	return entity.WeatherStats{
		StationID:          a.StationID,
		Year:               a.Year,
		AvgMaxTemp:         a.maxTemp.mean(TempDivisor),
		AvgMinTemp:         a.minTemp.mean(TempDivisor),
		TotalPrecipitation: a.precip.total(PrecipitationDivisor),
	}
}

// Summarize groups readings by station and year. The readings must be ordered by
// station and date; the output follows the same order.
func Summarize(readings []entity.WeatherRecord) []entity.WeatherStats {
	var out []entity.WeatherStats
	g := newGrouper(func(s entity.WeatherStats) { out = append(out, s) })
	for _, r := range readings {
		g.add(r)
	}
	g.flush()
	return out
}

// grouper emits a summary whenever the (station, year) of the input changes.
type grouper struct {
	cur  *Accumulator
	emit func(entity.WeatherStats)
}

func newGrouper(emit func(entity.WeatherStats)) *grouper {
	return &grouper{emit: emit}
}

func (g *grouper) add(r entity.WeatherRecord) {
	year := r.Date.Year()
	if g.cur != nil && (g.cur.StationID != r.StationID || g.cur.Year != year) {
		g.flush()
	}
	if g.cur == nil {
		g.cur = NewAccumulator(r.StationID, year)
	}
	g.cur.Add(r)
}

func (g *grouper) flush() {
	if g.cur == nil {
		return
	}
	s := g.cur.Stats()
	g.cur = nil
	g.emit(s)
}
