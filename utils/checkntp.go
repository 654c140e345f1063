package utils

import (
	"time"

	"github.com/beevik/ntp"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "ntp")

// DefaultNTPServer is queried by CheckNTP when no server is configured.
const DefaultNTPServer = "pool.ntp.org"

// TimeOffset is the offset from the current time of the computer.
var TimeOffset time.Duration

// CheckNTP queries an NTP server and stores the clock offset used by Now.
func CheckNTP(server string) {
	if server == "" {
		server = DefaultNTPServer
	}

	res, err := ntp.Query(server)
	if err != nil {
		log.WithField("server", server).Warn("could not connect to NTP server to check time offset")
		return
	}

	log.WithField("offset", res.ClockOffset).Info("got clock offset from NTP server")
	TimeOffset = res.ClockOffset
}

// Now gets the true time (not relying on computer time)
func Now() time.Time {
	return time.Now().Add(TimeOffset)
}
