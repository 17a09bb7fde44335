// Package humanfmt formats sizes, counts, durations and rates for pretty log output.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

// Binary (IEC) units for bytes.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

type unit struct {
	size   float64
	suffix string
}

// Largest first.
var (
	byteUnits  = []unit{{TiB, " TiB"}, {GiB, " GiB"}, {MiB, " MiB"}, {KiB, " KiB"}}
	countUnits = []unit{{1e9, "B"}, {1e6, "M"}, {1e3, "K"}}
)

// scale formats v with the largest unit not exceeding it, or returns
// ok=false when v is below every unit.
func scale(v float64, units []unit) (string, bool) {
	for _, u := range units {
		if v >= u.size {
			return strconv.FormatFloat(v/u.size, 'f', 2, 64) + u.suffix, true
		}
	}
	return "", false
}

// Bytes formats a byte count using IEC binary units, e.g. "1.23 GiB".
func Bytes(b int64) string {
	if s, ok := scale(float64(b), byteUnits); ok {
		return s
	}
	return strconv.FormatInt(b, 10) + " B"
}

// Count formats a count with decimal suffixes, e.g. "1.23M", "456.00K", "789".
func Count(n int64) string {
	if s, ok := scale(float64(n), countUnits); ok {
		return s
	}
	return strconv.FormatInt(n, 10)
}

// Examples: "1.23s", "45.6ms", "789.0µs", "1m30s", "2h15m".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Hour:
		return wholeUnits(d, time.Hour, time.Minute, "h", "m")
	case d >= time.Minute:
		return wholeUnits(d, time.Minute, time.Second, "m", "s")
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func wholeUnits(d, major, minor time.Duration, majorSuffix, minorSuffix string) string {
	hi := d / major
	lo := (d % major) / minor
	if lo == 0 {
		return fmt.Sprintf("%d%s", hi, majorSuffix)
	}
	return fmt.Sprintf("%d%s%d%s", hi, majorSuffix, lo, minorSuffix)
}

// Throughput formats bytes per duration, e.g. "123.40 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	bps := float64(bytes) / d.Seconds()
	if s, ok := scale(bps, byteUnits); ok {
		return s + "/s"
	}
	return fmt.Sprintf("%.0f B/s", bps)
}

// Rate formats n items per duration, e.g. "1.20M msg/s".
func Rate(n int64, d time.Duration, item string) string {
	if d <= 0 {
		return "∞ " + item + "/s"
	}
	per := float64(n) / d.Seconds()
	if s, ok := scale(per, countUnits); ok {
		return s + " " + item + "/s"
	}
	return fmt.Sprintf("%.0f %s/s", per, item)
}
