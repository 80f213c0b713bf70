package xtime

import "time"

func UTCNow() time.Time {
	return time.Now().UTC()
}

var utcNowFunc = UTCNow

// Now returns the current UTC time truncated to milliseconds, the precision
// timestamps are stored with.
func Now() time.Time {
	return utcNowFunc().Truncate(time.Millisecond)
}

// SetNowFuncForTest replaces the clock until the returned restore is called.
func SetNowFuncForTest(f func() time.Time) (restore func()) {
	utcNowFunc = f

	return func() {
		utcNowFunc = UTCNow
	}
}

// ToMillis converts t to unix milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts unix milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
