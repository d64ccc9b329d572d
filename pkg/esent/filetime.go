package esent

import (
	"math"
	"time"
)

// filetimeEpochDelta is the number of seconds between 1601-01-01 and 1970-01-01.
const filetimeEpochDelta = 11644473600

// FileTimeToTime converts 100 nanosecond intervals since 1601-01-01 to UTC.
func FileTimeToTime(ft uint64) time.Time {
	secs := int64(ft/1e7) - filetimeEpochDelta
	nsec := int64(ft%1e7) * 100
	return time.Unix(secs, nsec).UTC()
}

var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// OLEDateToTime converts an OLE automation date, days since 1899-12-30 with
// the time of day as the fraction, to UTC. Negative dates count the day
// backwards but the time of day forwards.
func OLEDateToTime(d float64) time.Time {
	days := math.Trunc(d)
	frac := math.Abs(d - days)
	t := oleEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac * 24 * float64(time.Hour))))
}
