package util

import "time"

// secondsCutoff separates epoch seconds from epoch millis; 1e11 seconds is year 5138.
const secondsCutoff = 1e11

// NormalizeEpochMillis treats values below the cutoff as seconds and scales them to millis.
func NormalizeEpochMillis(ts int64) int64 {
	if ts > 0 && ts < secondsCutoff {
		return ts * 1000
	}
	return ts
}

// FromMillis converts epoch millis to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
