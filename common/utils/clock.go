package utils

import (
	"time"

	"github.com/abstractors/go-rewards/common/constants"
)

// Epoch is floor(unixSeconds / 3600).
func Epoch(t time.Time) uint64 {
	secs := t.Unix()
	if secs < 0 {
		return 0
	}
	return uint64(secs) / uint64(constants.EpochDuration/time.Second)
}
