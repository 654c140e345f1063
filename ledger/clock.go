package ledger

import (
	"github.com/phoreproject/sentinel/utils"
)

// Clock supplies the execution timestamp of a transaction.
type Clock interface {
	// UnixTimestamp returns the current time in seconds since the epoch.
	UnixTimestamp() int64
}

// NTPClock reads the NTP corrected system time.
type NTPClock struct{}

// UnixTimestamp implements Clock.
func (NTPClock) UnixTimestamp() int64 {
	return utils.Now().Unix()
}

// FixedClock always returns the same timestamp.
type FixedClock int64

// UnixTimestamp implements Clock.
func (f FixedClock) UnixTimestamp() int64 {
	return int64(f)
}
